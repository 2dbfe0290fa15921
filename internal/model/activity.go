package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// EventType is the activity event vocabulary posted by the exam client.
// Values are case-sensitive and match the wire format exactly.
type EventType string

const (
	EventWindowBlur        EventType = "window_blur"
	EventWindowFocus       EventType = "window_focus"
	EventVisibilityHidden  EventType = "visibility_hidden"
	EventVisibilityVisible EventType = "visibility_visible"
	EventFullscreenExit    EventType = "fullscreen_exit"
	EventPageHide          EventType = "pagehide"
	EventInactiveStart     EventType = "inactive_start"
	EventInactiveEnd       EventType = "inactive_end"
)

// ParseEventType validates a wire string against the event vocabulary.
func ParseEventType(s string) (EventType, bool) {
	switch EventType(s) {
	case EventWindowBlur, EventWindowFocus, EventVisibilityHidden,
		EventVisibilityVisible, EventFullscreenExit, EventPageHide,
		EventInactiveStart, EventInactiveEnd:
		return EventType(s), true
	}
	return "", false
}

// IsBlurLike reports whether the event marks the start of an away episode.
func (e EventType) IsBlurLike() bool {
	switch e {
	case EventWindowBlur, EventVisibilityHidden, EventFullscreenExit, EventPageHide:
		return true
	}
	return false
}

// IsFocusLike reports whether the event marks the end of an away or
// inactive episode. Only focus-like events with a duration move the
// session's tab-switch and time-away counters.
func (e EventType) IsFocusLike() bool {
	switch e {
	case EventWindowFocus, EventVisibilityVisible, EventInactiveEnd:
		return true
	}
	return false
}

// ActivityLogEntry is one classified proctoring event. Append-only.
type ActivityLogEntry struct {
	ID             int64      `json:"id"`
	SessionID      uuid.UUID  `json:"session_id"`
	EventType      EventType  `json:"event_type"`
	OccurredAt     time.Time  `json:"occurred_at"`
	DurationAwayMs *int64     `json:"duration_away_ms,omitempty"`
	ExamQuestionID *uuid.UUID `json:"exam_question_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LogEventRequest is the wire payload for recording a classified event.
// Timestamp may be epoch millis or RFC3339; duration is optional and
// coerced. Validation of the event type happens in the service so the
// error maps to the taxonomy rather than a generic binding failure.
type LogEventRequest struct {
	EventType      string     `json:"event_type" binding:"required,max=40"`
	TimestampMs    *int64     `json:"timestamp_ms"`
	Timestamp      *time.Time `json:"timestamp"`
	DurationAwayMs *float64   `json:"duration_away_ms"`
	ExamQuestionID *uuid.UUID `json:"exam_question_id"`
}

// OccurredAt resolves the event time, preferring epoch millis, then the
// RFC3339 field, then the server clock.
func (r *LogEventRequest) OccurredAt(now time.Time) time.Time {
	if r.TimestampMs != nil {
		return time.UnixMilli(*r.TimestampMs)
	}
	if r.Timestamp != nil {
		return *r.Timestamp
	}
	return now
}

// Duration coerces the optional duration: negative or non-finite values
// are treated as absent, fractional millis are floored.
func (r *LogEventRequest) Duration() *int64 {
	if r.DurationAwayMs == nil || *r.DurationAwayMs < 0 ||
		math.IsNaN(*r.DurationAwayMs) || math.IsInf(*r.DurationAwayMs, 0) {
		return nil
	}
	d := int64(*r.DurationAwayMs)
	return &d
}
