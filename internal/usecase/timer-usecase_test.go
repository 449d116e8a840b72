package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTimer(gen usecase.Generator) *usecase.TimerUsecase {
	return usecase.NewTimerUsecase(usecase.TimerUsecaseDeps{Generation: newGeneration(gen)})
}

func TestTimerElapsedGrowsWhileRunning(t *testing.T) {
	timers := newTimer(&fakeGenerator{})
	userID := uuid.New()

	assert.Zero(t, timers.Elapsed(userID))
	timers.Start(userID)
	time.Sleep(30 * time.Millisecond)
	assert.Greater(t, timers.Elapsed(userID), time.Duration(0))
}

func TestTimerStopFreezesAndGeneratesReflection(t *testing.T) {
	gen := &fakeGenerator{response: `{"content":"继续加油！"}`}
	timers := newTimer(gen)
	userID := uuid.New()

	timers.Start(userID)
	time.Sleep(20 * time.Millisecond)
	elapsed, payload, err := timers.Stop(context.Background(), userID)
	require.NoError(t, err)
	assert.Greater(t, elapsed, time.Duration(0))
	assert.Equal(t, "继续加油！", payload.Content)

	sent := gen.lastSent.Load().(string)
	assert.NotContains(t, sent, "${time}")

	frozen := timers.Elapsed(userID)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, timers.Elapsed(userID))
}

func TestTimerStopFallsBackOnUpstreamFailure(t *testing.T) {
	timers := newTimer(&fakeGenerator{err: usecase.ErrEmptyChoices})
	userID := uuid.New()

	timers.Start(userID)
	_, payload, err := timers.Stop(context.Background(), userID)
	require.NoError(t, err)
	assert.Contains(t, payload.Content, "专注学习")
}

func TestTimerReset(t *testing.T) {
	timers := newTimer(&fakeGenerator{})
	userID := uuid.New()

	timers.Start(userID)
	time.Sleep(10 * time.Millisecond)
	timers.Reset(userID)
	assert.Zero(t, timers.Elapsed(userID))
}

func TestTimerStartWhileRunningIsNoOp(t *testing.T) {
	timers := newTimer(&fakeGenerator{})
	userID := uuid.New()

	timers.Start(userID)
	time.Sleep(20 * time.Millisecond)
	before := timers.Elapsed(userID)
	timers.Start(userID)
	assert.GreaterOrEqual(t, timers.Elapsed(userID), before)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", usecase.FormatDuration(0))
	assert.Equal(t, "00:59", usecase.FormatDuration(59*time.Second))
	assert.Equal(t, "01:05", usecase.FormatDuration(65*time.Second))
	assert.Equal(t, "59:59", usecase.FormatDuration(3599*time.Second))
	assert.Equal(t, "01:00:01", usecase.FormatDuration(3601*time.Second))
	assert.Equal(t, "10:02:03", usecase.FormatDuration(10*time.Hour+2*time.Minute+3*time.Second))
}
