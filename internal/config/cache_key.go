package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentLoginKey returns the cache key holding a student's active JWT ID.
func (r *CacheKeyStruct) StudentLoginKey(studentID uuid.UUID) string {
	return fmt.Sprintf("login:%s", studentID)
}

// SessionLastEventKey returns the cache key holding the last recorded
// activity event (type + unix millis) for a session. Used for the 2s
// server-side dedup window.
func (r *CacheKeyStruct) SessionLastEventKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s:last_event", sessionID)
}

// MonitorChannel returns the Redis PubSub channel for the admin live monitor.
func (r *CacheKeyStruct) MonitorChannel() string {
	return "exam:monitor"
}

var CacheKey = NewCacheKeyStruct()
