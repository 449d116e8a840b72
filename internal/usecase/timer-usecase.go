package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
)

type studyTimer struct {
	running   bool
	startedAt time.Time
	elapsed   time.Duration
}

type TimerUsecaseDeps struct {
	Generation *GenerationUsecase
}

// TimerUsecase tracks one study timer per user. Elapsed time is always
// recomputed from the captured start instant, never accumulated tick by
// tick.
type TimerUsecase struct {
	TimerUsecaseDeps

	mu     sync.Mutex
	timers map[uuid.UUID]*studyTimer
}

func NewTimerUsecase(deps TimerUsecaseDeps) *TimerUsecase {
	return &TimerUsecase{
		TimerUsecaseDeps: deps,
		timers:           make(map[uuid.UUID]*studyTimer),
	}
}

func (t *TimerUsecase) Start(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer := t.timer(userID)
	if timer.running {
		return
	}
	timer.startedAt = time.Now().Add(-timer.elapsed)
	timer.running = true
}

func (t *TimerUsecase) Elapsed(userID uuid.UUID) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	timer := t.timer(userID)
	if timer.running {
		return time.Since(timer.startedAt)
	}
	return timer.elapsed
}

// Stop freezes the timer and asks the pipeline for a reflection on the
// studied time. The payload is genuine or fallback content, never an
// error.
func (t *TimerUsecase) Stop(ctx context.Context, userID uuid.UUID) (time.Duration, model.ExtractedPayload, error) {
	t.mu.Lock()
	timer := t.timer(userID)
	if timer.running {
		timer.elapsed = time.Since(timer.startedAt)
		timer.running = false
	}
	elapsed := timer.elapsed
	t.mu.Unlock()

	seconds := int(elapsed / time.Second)
	payload, err := t.Generation.GeneratePayload(
		ctx, model.FeatureTimer, map[string]string{"time": strconv.Itoa(seconds)},
	)
	if err != nil {
		return elapsed, model.ExtractedPayload{}, err
	}
	return elapsed, payload, nil
}

func (t *TimerUsecase) Reset(userID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.timers, userID)
}

func (t *TimerUsecase) timer(userID uuid.UUID) *studyTimer {
	timer, ok := t.timers[userID]
	if !ok {
		timer = &studyTimer{}
		t.timers[userID] = timer
	}
	return timer
}

// FormatDuration renders elapsed study time as MM:SS, or HH:MM:SS once a
// full hour is reached.
func FormatDuration(d time.Duration) string {
	seconds := int(d / time.Second)
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
