package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/talentsift/recruitex-backend/internal/config"
	"github.com/talentsift/recruitex-backend/internal/service"
)

func TestProcessSignalRejectsUnknownSignal(t *testing.T) {
	env, signals := newSignalEnv(t)
	studentID := practicalStudent(t, env.examEnv)

	_, err := signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: "mousemove"})
	require.ErrorIs(t, err, service.ErrInvalidSignal)
}

func TestProcessSignalWithoutSession(t *testing.T) {
	_, signals := newSignalEnv(t)

	_, err := signals.ProcessSignal(context.Background(), uuid.New(),
		&service.SignalRequest{Signal: service.SignalBlur})
	require.ErrorIs(t, err, service.ErrNoActiveSession)
}

func TestProcessSignalTheoryBlurTerminates(t *testing.T) {
	env, signals := newSignalEnv(t)
	studentID := env.seedStudent(t, 1)
	state, err := env.svc.Start(context.Background(), studentID)
	require.NoError(t, err)

	result, err := signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: service.SignalBlur})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.True(t, result.Terminated)

	stored := env.store.get(state.Session.ID)
	require.NotNil(t, stored.SubmittedAt)
	require.True(t, stored.TheoryViolation)
}

func TestProcessSignalPracticalBlurIsLogged(t *testing.T) {
	env, signals := newSignalEnv(t)
	studentID := practicalStudent(t, env.examEnv)
	state, err := env.svc.State(context.Background(), studentID)
	require.NoError(t, err)

	result, err := signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: service.SignalBlur})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.False(t, result.Terminated)

	count, err := env.rdb.LLen(context.Background(), config.WorkerKey.PersistActivityQueue).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.Nil(t, env.store.get(state.Session.ID).SubmittedAt)
}

func TestProcessSignalFullscreenExitWarns(t *testing.T) {
	env, signals := newSignalEnv(t)
	studentID := practicalStudent(t, env.examEnv)

	result, err := signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: service.SignalFullscreenExit})
	require.NoError(t, err)
	require.True(t, result.Accepted)
	require.True(t, result.Warning)
	require.False(t, result.Terminated)

	// The flag is one-shot; a harmless follow-up signal carries no warning.
	result, err = signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: service.SignalActivity})
	require.NoError(t, err)
	require.False(t, result.Warning)
}

func TestProcessSignalPairedBlurFocusAccumulates(t *testing.T) {
	env, signals := newSignalEnv(t)
	studentID := practicalStudent(t, env.examEnv)
	state, err := env.svc.State(context.Background(), studentID)
	require.NoError(t, err)

	_, err = signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: service.SignalBlur})
	require.NoError(t, err)

	// Outside both dedup windows so the focus event survives classification.
	time.Sleep(600 * time.Millisecond)

	_, err = signals.ProcessSignal(context.Background(), studentID,
		&service.SignalRequest{Signal: service.SignalFocus})
	require.NoError(t, err)

	stored := env.store.get(state.Session.ID)
	require.Equal(t, 1, stored.TotalTabSwitches)
}

func TestTeardownIsSafeWithoutTracker(t *testing.T) {
	_, signals := newSignalEnv(t)
	signals.Teardown(uuid.New())
	signals.Shutdown()
}

// ─── Helpers ───

func newSignalEnv(t *testing.T) (*signalEnv, *service.SignalService) {
	t.Helper()
	env, activity, rdb := newActivityEnv(t)
	signals := service.NewSignalService(env.store, activity, env.svc, zerolog.Nop())
	t.Cleanup(signals.Shutdown)
	return &signalEnv{examEnv: env, rdb: rdb}, signals
}

// signalEnv embeds the exam environment so the shared seeding helpers apply.
type signalEnv struct {
	*examEnv
	rdb *redis.Client
}
