package usecase_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"github.com/iamvkosarev/study-energy-bot/internal/usecase"
	"github.com/iamvkosarev/study-energy-bot/pkg/local"
	"github.com/iamvkosarev/study-energy-bot/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	response string
	err      error
	delay    time.Duration
	calls    atomic.Int32
	lastSent atomic.Value
}

func (f *fakeGenerator) Generate(ctx context.Context, resolvedPrompt string) (string, error) {
	f.calls.Add(1)
	f.lastSent.Store(resolvedPrompt)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", usecase.ErrNetwork
		case <-time.After(f.delay):
		}
	}
	return f.response, f.err
}

func newGeneration(gen usecase.Generator) *usecase.GenerationUsecase {
	return usecase.NewGenerationUsecase(
		usecase.GenerationUsecaseDeps{Generator: gen}, local.Chn, zap.NewNop(),
	)
}

func TestGeneratePayloadFortuneSuccess(t *testing.T) {
	gen := &fakeGenerator{response: `Here you go: {"type":"宜学习","content":"坚持学习。"}`}
	g := newGeneration(gen)

	payload, err := g.GeneratePayload(context.Background(), model.FeatureFortune, nil)
	require.NoError(t, err)
	assert.Equal(t, "宜学习", payload.Type)
	assert.Equal(t, "坚持学习。", payload.Content)
	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, usecase.FortunePrompt, gen.lastSent.Load())
}

func TestGeneratePayloadSubstitutesUserContent(t *testing.T) {
	gen := &fakeGenerator{response: `{"content":"别灰心！"}`}
	g := newGeneration(gen)

	_, err := g.GeneratePayload(
		context.Background(), model.FeatureTreeHole, map[string]string{"content": "今天好累"},
	)
	require.NoError(t, err)
	sent := gen.lastSent.Load().(string)
	assert.Contains(t, sent, "今天好累")
	assert.NotContains(t, sent, "${content}")
}

func TestGeneratePayloadNoStructureFallsBack(t *testing.T) {
	gen := &fakeGenerator{response: "I cannot help with that."}
	g := newGeneration(gen)

	payload, err := g.GeneratePayload(context.Background(), model.FeatureFortune, nil)
	require.NoError(t, err)
	assert.Equal(t, "宜学习", payload.Type)
	assert.Contains(t, payload.Content, "勤奋耕耘")
}

func TestGeneratePayloadMissingContentFallsBack(t *testing.T) {
	gen := &fakeGenerator{response: `{"type":"x"}`}
	g := newGeneration(gen)

	payload, err := g.GeneratePayload(context.Background(), model.FeatureTimer, map[string]string{"time": "60"})
	require.NoError(t, err)
	assert.Contains(t, payload.Content, "专注学习")
}

func TestGeneratePayloadTransportFailureFallsBack(t *testing.T) {
	gen := &fakeGenerator{err: usecase.ErrNetwork}
	g := newGeneration(gen)

	payload, err := g.GeneratePayload(
		context.Background(), model.FeatureTreeHole, map[string]string{"content": "你好"},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, payload.Content)
}

func TestGeneratePayloadBuddyChatFallbackIsFixed(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	g := newGeneration(gen)

	payload, err := g.GeneratePayload(
		context.Background(), model.FeatureBuddyChat, map[string]string{"content": "在吗"},
	)
	require.NoError(t, err)
	assert.Equal(t, "抱歉，我现在有点累了，稍后再聊吧~", payload.Content)
}

func TestGeneratePayloadUnresolvedPlaceholderAborts(t *testing.T) {
	gen := &fakeGenerator{response: `{"content":"never used"}`}
	g := newGeneration(gen)

	_, err := g.GeneratePayload(context.Background(), model.FeatureTimer, nil)
	require.ErrorIs(t, err, prompt.ErrUnresolvedPlaceholder)
	assert.Equal(t, int32(0), gen.calls.Load(), "no upstream call on a caller bug")
}

func TestGeneratePayloadUnknownFeature(t *testing.T) {
	g := newGeneration(&fakeGenerator{})
	_, err := g.GeneratePayload(context.Background(), model.Feature("mystery"), nil)
	require.ErrorIs(t, err, usecase.ErrUnknownFeature)
}
