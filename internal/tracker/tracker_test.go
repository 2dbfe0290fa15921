package tracker_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talentsift/recruitex-backend/internal/model"
	"github.com/talentsift/recruitex-backend/internal/tracker"
)

func TestWindowBlurFocusPairEmitsDuration(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()
	clock.Advance(5 * time.Second)
	tr.WindowFocus()

	events := rec.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, model.EventWindowBlur, events[0].eventType)
	require.Nil(t, events[0].durationMs)
	require.Equal(t, model.EventWindowFocus, events[1].eventType)
	require.NotNil(t, events[1].durationMs)
	require.Equal(t, int64(5000), *events[1].durationMs)
}

func TestRepeatedBlurIsIgnoredWhileAway(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()
	clock.Advance(time.Second)
	tr.WindowBlur()
	clock.Advance(time.Second)
	tr.WindowBlur()

	require.Len(t, rec.snapshot(), 1)
}

func TestSameClassBurstCollapses(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	// Browsers fire blur and visibilitychange nearly simultaneously; only
	// the first should survive.
	tr.WindowBlur()
	clock.Advance(50 * time.Millisecond)
	tr.VisibilityHidden()

	events := rec.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, model.EventWindowBlur, events[0].eventType)

	// The paired return storm collapses the same way.
	clock.Advance(2 * time.Second)
	tr.WindowFocus()
	clock.Advance(50 * time.Millisecond)
	tr.VisibilityVisible()

	events = rec.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, model.EventWindowFocus, events[1].eventType)
}

func TestDistinctBlurEventsOutsideWindowBothEmit(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()
	clock.Advance(time.Second)
	tr.VisibilityHidden()

	events := rec.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, model.EventVisibilityHidden, events[1].eventType)
}

func TestSameTypeWithinWindowDeduped(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.PageHide()
	clock.Advance(400 * time.Millisecond)
	tr.PageHide()
	require.Len(t, rec.snapshot(), 1)

	clock.Advance(600 * time.Millisecond)
	tr.PageHide()
	require.Len(t, rec.snapshot(), 2)
}

func TestInactivityEpisode(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(25*time.Millisecond))
	t.Cleanup(tr.Close)

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	events := rec.snapshot()
	require.Equal(t, model.EventInactiveStart, events[0].eventType)

	clock.Advance(30 * time.Second)
	tr.Activity()

	events = rec.snapshot()
	require.Len(t, events, 2)
	require.Equal(t, model.EventInactiveEnd, events[1].eventType)
	require.NotNil(t, events[1].durationMs)
	require.Equal(t, int64(30000), *events[1].durationMs)
}

func TestInactivityTimerSuppressedWhileAway(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(25*time.Millisecond))
	t.Cleanup(tr.Close)

	tr.WindowBlur()
	time.Sleep(80 * time.Millisecond)

	// Only the blur; no inactive_start while focus is already lost.
	events := rec.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, model.EventWindowBlur, events[0].eventType)
}

func TestTheoryViolationPreemptsEvent(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	violations := 0
	tr := tracker.New(tracker.Callbacks{
		OnEvent:           rec.onEvent,
		CurrentSection:    func() model.Section { return model.SectionTheory },
		OnTheoryViolation: func() { violations++ },
	}, tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()

	require.Equal(t, 1, violations)
	require.Empty(t, rec.snapshot())
}

func TestPracticalSectionBlurIsLoggedNotViolation(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	violations := 0
	tr := tracker.New(tracker.Callbacks{
		OnEvent:           rec.onEvent,
		CurrentSection:    func() model.Section { return model.SectionPractical },
		OnTheoryViolation: func() { violations++ },
	}, tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()

	require.Zero(t, violations)
	require.Len(t, rec.snapshot(), 1)
}

func TestFullscreenExitWarningFiresEvenWhenDeduped(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	warnings := 0
	tr := tracker.New(tracker.Callbacks{
		OnEvent:                 rec.onEvent,
		OnFullscreenExitWarning: func() { warnings++ },
	}, tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()
	clock.Advance(50 * time.Millisecond)
	tr.FullscreenExit()

	require.Equal(t, 1, warnings)
	events := rec.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, model.EventWindowBlur, events[0].eventType)
}

func TestEventCarriesCurrentQuestionID(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{
		OnEvent:           rec.onEvent,
		CurrentQuestionID: func() string { return "q-42" },
	}, tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))
	t.Cleanup(tr.Close)

	tr.WindowBlur()

	events := rec.snapshot()
	require.Len(t, events, 1)
	require.Equal(t, "q-42", events[0].questionID)
}

func TestCloseIsIdempotentAndSilencesSignals(t *testing.T) {
	clock := newFakeClock()
	rec := &recorder{}
	tr := tracker.New(tracker.Callbacks{OnEvent: rec.onEvent},
		tracker.WithClock(clock.Now), tracker.WithInactivityTimeout(time.Hour))

	tr.Close()
	tr.Close()

	tr.WindowBlur()
	tr.WindowFocus()
	tr.VisibilityHidden()
	tr.PageHide()
	tr.Activity()

	require.Empty(t, rec.snapshot())
}

// ─── Helpers ───

type recordedEvent struct {
	eventType  model.EventType
	durationMs *int64
	questionID string
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) onEvent(ev model.EventType, durationMs *int64, questionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{ev, durationMs, questionID})
}

func (r *recorder) snapshot() []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedEvent(nil), r.events...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
