package quiz

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps quiz ids to shared *Quiz handles. Quizzes are immutable, so
// a handle can be given to any number of sessions; the registry only guards
// its own map.
type Registry struct {
	mu      sync.RWMutex
	quizzes map[uuid.UUID]*Quiz
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{quizzes: make(map[uuid.UUID]*Quiz)}
}

// Register stores q, replacing any quiz with the same id.
func (r *Registry) Register(q *Quiz) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[q.ID()] = q
}

// Get returns the handle for id.
func (r *Registry) Get(id uuid.UUID) (*Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.quizzes[id]
	return q, ok
}

// Remove drops id. Handles already given out stay valid.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.quizzes, id)
}

// Len returns the number of registered quizzes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.quizzes)
}
