package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/talentsift/recruitex-backend/internal/model"
)

func TestParseEventType(t *testing.T) {
	for _, s := range []string{
		"window_blur", "window_focus", "visibility_hidden", "visibility_visible",
		"fullscreen_exit", "pagehide", "inactive_start", "inactive_end",
	} {
		ev, ok := model.ParseEventType(s)
		require.True(t, ok, s)
		require.Equal(t, model.EventType(s), ev)
	}

	for _, s := range []string{"", "WINDOW_BLUR", "blur", "page_hide", "tab_switch"} {
		_, ok := model.ParseEventType(s)
		require.False(t, ok, s)
	}
}

func TestEventClassification(t *testing.T) {
	blurLike := []model.EventType{
		model.EventWindowBlur, model.EventVisibilityHidden,
		model.EventFullscreenExit, model.EventPageHide,
	}
	focusLike := []model.EventType{
		model.EventWindowFocus, model.EventVisibilityVisible, model.EventInactiveEnd,
	}

	for _, ev := range blurLike {
		require.True(t, ev.IsBlurLike(), ev)
		require.False(t, ev.IsFocusLike(), ev)
	}
	for _, ev := range focusLike {
		require.True(t, ev.IsFocusLike(), ev)
		require.False(t, ev.IsBlurLike(), ev)
	}
	require.False(t, model.EventInactiveStart.IsBlurLike())
	require.False(t, model.EventInactiveStart.IsFocusLike())
}

func TestLogEventRequestOccurredAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rfc := now.Add(-time.Minute)
	ms := now.Add(-2 * time.Minute).UnixMilli()

	req := model.LogEventRequest{}
	require.Equal(t, now, req.OccurredAt(now))

	req.Timestamp = &rfc
	require.Equal(t, rfc, req.OccurredAt(now))

	// Epoch millis win over the RFC3339 field when both are present.
	req.TimestampMs = &ms
	require.Equal(t, time.UnixMilli(ms), req.OccurredAt(now))
}

func TestLogEventRequestDuration(t *testing.T) {
	dur := func(v float64) *float64 { return &v }

	require.Nil(t, (&model.LogEventRequest{}).Duration())
	require.Nil(t, (&model.LogEventRequest{DurationAwayMs: dur(-1)}).Duration())
	require.Nil(t, (&model.LogEventRequest{DurationAwayMs: dur(math.NaN())}).Duration())
	require.Nil(t, (&model.LogEventRequest{DurationAwayMs: dur(math.Inf(1))}).Duration())

	d := (&model.LogEventRequest{DurationAwayMs: dur(1500.9)}).Duration()
	require.NotNil(t, d)
	require.Equal(t, int64(1500), *d)

	d = (&model.LogEventRequest{DurationAwayMs: dur(0)}).Duration()
	require.NotNil(t, d)
	require.Zero(t, *d)
}
