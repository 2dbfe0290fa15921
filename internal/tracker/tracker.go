// Package tracker classifies raw browser-level signals (focus, visibility,
// fullscreen, input activity) into the deduplicated activity event
// vocabulary recorded against an exam session. A Tracker is a standalone
// instance: it owns its away/inactive state and inactivity timer, emits
// through caller-supplied callbacks, and is fully reset by discarding it
// and constructing a new one.
package tracker

import (
	"sync"
	"time"

	"github.com/talentsift/recruitex-backend/internal/model"
)

const (
	// DefaultInactivityTimeout is how long input may be absent before an
	// inactive_start is emitted.
	DefaultInactivityTimeout = 20 * time.Second

	// sameTypeWindow suppresses an identical event type repeated within
	// this window.
	sameTypeWindow = 500 * time.Millisecond

	// sameClassWindow collapses browser-native event storms: two blur-like
	// (or two focus-like) events within this window count as one logical
	// transition.
	sameClassWindow = 300 * time.Millisecond
)

// Callbacks bundles the tracker's outputs. OnEvent is the only required
// member; the transport behind it is the caller's concern and must be
// fire-and-forget. Callbacks are invoked synchronously and must not call
// back into the Tracker.
type Callbacks struct {
	// OnEvent receives every classified event. durationMs is nil for
	// events without an away duration.
	OnEvent func(ev model.EventType, durationMs *int64, questionID string)

	// OnFullscreenExitWarning fires on every fullscreen exit, before the
	// event itself is classified.
	OnFullscreenExitWarning func()

	// CurrentQuestionID reports the question the candidate is viewing.
	// Optional; empty string means no question context.
	CurrentQuestionID func() string

	// CurrentSection reports the exam section the candidate is in.
	CurrentSection func() model.Section

	// OnTheoryViolation fires instead of OnEvent when a blur-like event is
	// classified during the theory section.
	OnTheoryViolation func()
}

// Option customizes a Tracker, mainly for tests.
type Option func(*Tracker)

// WithClock replaces the wall clock used for away durations and dedup
// windows.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithInactivityTimeout overrides DefaultInactivityTimeout.
func WithInactivityTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.inactivityTimeout = d }
}

type emitRecord struct {
	eventType model.EventType
	at        time.Time
}

// Tracker converts raw signals into classified activity events.
type Tracker struct {
	mu sync.Mutex

	cb                Callbacks
	now               func() time.Time
	inactivityTimeout time.Duration

	away          bool
	awaySince     time.Time
	inactive      bool
	inactiveSince time.Time

	lastEmit    emitRecord
	hasLastEmit bool

	timer  *time.Timer
	closed bool
}

// New constructs a Tracker and arms its inactivity timer.
func New(cb Callbacks, opts ...Option) *Tracker {
	t := &Tracker{
		cb:                cb,
		now:               time.Now,
		inactivityTimeout: DefaultInactivityTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.mu.Lock()
	t.scheduleTimerLocked()
	t.mu.Unlock()

	return t
}

// Close cancels the inactivity timer and disables the tracker. A timer that
// already fired concurrently observes closed and does nothing. Safe to call
// more than once.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.stopTimerLocked()
}

// WindowBlur handles loss of window input focus.
func (t *Tracker) WindowBlur() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.away {
		return
	}
	t.away = true
	t.awaySince = t.now()
	t.emitLocked(model.EventWindowBlur, nil)
}

// WindowFocus handles the window regaining input focus. Emits the paired
// window_focus with the away duration and restarts inactivity detection.
func (t *Tracker) WindowFocus() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.away {
		dur := t.now().Sub(t.awaySince).Milliseconds()
		t.emitLocked(model.EventWindowFocus, &dur)
		t.away = false
	}
	t.resetInactivityLocked()
}

// VisibilityHidden handles the document becoming hidden.
func (t *Tracker) VisibilityHidden() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if !t.away {
		t.away = true
		t.awaySince = t.now()
	}
	t.emitLocked(model.EventVisibilityHidden, nil)
}

// VisibilityVisible handles the document becoming visible again.
func (t *Tracker) VisibilityVisible() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.away {
		dur := t.now().Sub(t.awaySince).Milliseconds()
		t.emitLocked(model.EventVisibilityVisible, &dur)
		t.away = false
	} else {
		t.emitLocked(model.EventVisibilityVisible, nil)
	}
	t.resetInactivityLocked()
}

// FullscreenExit handles leaving fullscreen mode. The warning callback
// fires regardless of dedup suppression of the event itself.
func (t *Tracker) FullscreenExit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.emitLocked(model.EventFullscreenExit, nil)
	if !t.away {
		t.away = true
		t.awaySince = t.now()
	}
	if t.cb.OnFullscreenExitWarning != nil {
		t.cb.OnFullscreenExitWarning()
	}
}

// FullscreenEnter handles entering fullscreen mode. Counts as activity.
func (t *Tracker) FullscreenEnter() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.resetInactivityLocked()
}

// PageHide handles page unload. Fire-and-forget; no state change.
func (t *Tracker) PageHide() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.emitLocked(model.EventPageHide, nil)
}

// Activity handles any qualifying input signal (mouse, keyboard, scroll).
func (t *Tracker) Activity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.resetInactivityLocked()
}

// resetInactivityLocked closes an open inactive episode and re-arms the
// timer. Caller holds t.mu.
func (t *Tracker) resetInactivityLocked() {
	t.stopTimerLocked()
	if t.inactive {
		t.inactive = false
		dur := t.now().Sub(t.inactiveSince).Milliseconds()
		t.emitLocked(model.EventInactiveEnd, &dur)
	}
	t.scheduleTimerLocked()
}

func (t *Tracker) scheduleTimerLocked() {
	t.timer = time.AfterFunc(t.inactivityTimeout, t.onInactivityTimeout)
}

func (t *Tracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// onInactivityTimeout fires once per arming; it is not rescheduled until
// the next activity signal. Inactivity while already away is ignored —
// focus loss takes precedence.
func (t *Tracker) onInactivityTimeout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.timer = nil
	if t.away {
		return
	}
	t.inactive = true
	t.inactiveSince = t.now()
	t.emitLocked(model.EventInactiveStart, nil)
}

// emitLocked applies the theory-violation rule and dedup policy, then
// delivers the event. Caller holds t.mu.
func (t *Tracker) emitLocked(ev model.EventType, durationMs *int64) {
	if ev.IsBlurLike() && t.section() == model.SectionTheory && t.cb.OnTheoryViolation != nil {
		t.cb.OnTheoryViolation()
		return
	}

	now := t.now()
	if t.hasLastEmit {
		elapsed := now.Sub(t.lastEmit.at)
		if t.lastEmit.eventType == ev && elapsed < sameTypeWindow {
			return
		}
		if ev.IsBlurLike() && t.lastEmit.eventType.IsBlurLike() && elapsed < sameClassWindow {
			return
		}
		if ev.IsFocusLike() && t.lastEmit.eventType.IsFocusLike() && elapsed < sameClassWindow {
			return
		}
	}
	t.lastEmit = emitRecord{eventType: ev, at: now}
	t.hasLastEmit = true

	questionID := ""
	if t.cb.CurrentQuestionID != nil {
		questionID = t.cb.CurrentQuestionID()
	}
	if t.cb.OnEvent != nil {
		t.cb.OnEvent(ev, durationMs, questionID)
	}
}

func (t *Tracker) section() model.Section {
	if t.cb.CurrentSection == nil {
		return ""
	}
	return t.cb.CurrentSection()
}
