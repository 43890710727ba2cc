package evaluation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/quizlr/internal/question"
	"github.com/stemsi/quizlr/internal/quiz"
)

// QuizSource lists the quizzes a BankGenerator draws from.
type QuizSource interface {
	List(ctx context.Context) ([]*quiz.Quiz, error)
}

// BankGenerator draws questions from existing quizzes that match the
// requested topic, kinds, difficulty and tags. Each generated question is a
// copy with a fresh id.
type BankGenerator struct {
	source QuizSource

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBankGenerator creates a BankGenerator. A nil rng draws from a
// randomly seeded source.
func NewBankGenerator(source QuizSource, rng *rand.Rand) *BankGenerator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &BankGenerator{source: source, rng: rng}
}

func (g *BankGenerator) GenerateQuestion(ctx context.Context, p Params) (*question.Question, error) {
	pool, err := g.candidates(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}

	g.mu.Lock()
	pick := pool[g.rng.IntN(len(pool))]
	g.mu.Unlock()

	c := pick.Clone()
	c.ID = uuid.New()
	return c, nil
}

// Generate draws up to n distinct questions. It returns fewer when the bank
// runs out.
func (g *BankGenerator) Generate(ctx context.Context, p Params, n int) ([]*question.Question, error) {
	pool, err := g.candidates(ctx, p)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	g.mu.Unlock()

	out := make([]*question.Question, 0, min(n, len(pool)))
	for _, q := range pool[:min(n, len(pool))] {
		c := q.Clone()
		c.ID = uuid.New()
		out = append(out, c)
	}
	return out, nil
}

func (g *BankGenerator) candidates(ctx context.Context, p Params) ([]*question.Question, error) {
	quizzes, err := g.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list question bank: %w", err)
	}

	maxDifficulty := p.MaxDifficulty
	if maxDifficulty == 0 {
		maxDifficulty = 1
	}

	var pool []*question.Question
	seen := make(map[uuid.UUID]struct{})
	for _, qz := range quizzes {
		qz.Each(func(_ int, q *question.Question) {
			if _, dup := seen[q.ID]; dup {
				return
			}
			if p.TopicID != uuid.Nil && q.TopicID != p.TopicID {
				return
			}
			if len(p.Kinds) > 0 && !slices.Contains(p.Kinds, q.Kind()) {
				return
			}
			if q.Difficulty < p.MinDifficulty || q.Difficulty > maxDifficulty {
				return
			}
			for _, tag := range p.Tags {
				if !q.HasTag(tag) {
					return
				}
			}
			seen[q.ID] = struct{}{}
			pool = append(pool, q)
		})
	}
	return pool, nil
}
