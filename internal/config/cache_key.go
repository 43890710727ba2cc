package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Anonymous is the user segment of session keys without a user.
const Anonymous = "anonymous"

type StorageKeyStruct struct{}

// QuizPrefix is the prefix shared by every quiz record.
func (r *StorageKeyStruct) QuizPrefix() string { return "quizzes/" }

// Quiz returns the storage key for a quiz record.
func (r *StorageKeyStruct) Quiz(quizID uuid.UUID) string {
	return fmt.Sprintf("quizzes/%s", quizID)
}

// UserSessionPrefix lists every session of one user (or of anonymous
// learners when userID is not valid).
func (r *StorageKeyStruct) UserSessionPrefix(userID uuid.NullUUID) string {
	return fmt.Sprintf("sessions/%s/", userSegment(userID))
}

// Session returns the storage key for a session record.
func (r *StorageKeyStruct) Session(userID uuid.NullUUID, sessionID uuid.UUID) string {
	return fmt.Sprintf("sessions/%s/%s", userSegment(userID), sessionID)
}

// SessionIndex maps a session id to the key of its record, so a session
// can be found without knowing its user.
func (r *StorageKeyStruct) SessionIndex(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-index/%s", sessionID)
}

// QuizSessionPrefix lists the session index entries of one quiz.
func (r *StorageKeyStruct) QuizSessionPrefix(quizID uuid.UUID) string {
	return fmt.Sprintf("quiz-sessions/%s/", quizID)
}

// QuizSession indexes a session under its quiz.
func (r *StorageKeyStruct) QuizSession(quizID, sessionID uuid.UUID) string {
	return fmt.Sprintf("quiz-sessions/%s/%s", quizID, sessionID)
}

// ScorePrefix lists every score computed for a session.
func (r *StorageKeyStruct) ScorePrefix(sessionID uuid.UUID) string {
	return fmt.Sprintf("scores/%s/", sessionID)
}

// Score returns the storage key for one strategy's score of a session.
func (r *StorageKeyStruct) Score(sessionID uuid.UUID, strategy string) string {
	return fmt.Sprintf("scores/%s/%s", sessionID, strategy)
}

// SessionIDFromKey returns the trailing session id of a session key.
func (r *StorageKeyStruct) SessionIDFromKey(key string) (uuid.UUID, error) {
	i := strings.LastIndexByte(key, '/')
	return uuid.Parse(key[i+1:])
}

func userSegment(userID uuid.NullUUID) string {
	if !userID.Valid {
		return Anonymous
	}
	return userID.UUID.String()
}

var StorageKey = &StorageKeyStruct{}

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizMonitorChannel returns the Redis PubSub channel name for a quiz monitor
func (r *CacheKeyStruct) QuizMonitorChannel(quizID uuid.UUID) string {
	return fmt.Sprintf("quiz:%s:monitor", quizID)
}

// RevokedTokenKey marks a token id as revoked until the token expires.
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("token:%s:revoked", jti)
}

var CacheKey = NewCacheKeyStruct()
