package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamvkosarev/study-energy-bot/config"
	openai_tools "github.com/iamvkosarev/study-energy-bot/pkg/openai-tools"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// SystemInstruction is sent with every completion request, as the product
// always did.
const SystemInstruction = "平台助手"

var (
	ErrNetwork      = errors.New("generation request got no response")
	ErrEmptyChoices = errors.New("generation response has no choices")
)

// HTTPError reports a non-success status from the generation endpoint.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("generation endpoint returned status %d", e.Status)
}

type OpenAIUsecase struct {
	cfg    config.OpenAI
	logger *zap.Logger
}

func NewOpenAIUsecase(cfg config.OpenAI, logger *zap.Logger) *OpenAIUsecase {
	return &OpenAIUsecase{
		cfg:    cfg,
		logger: logger,
	}
}

// Generate sends exactly one completion request carrying the resolved
// prompt and returns the first choice's content verbatim. There are no
// retries: a failed attempt is terminal for this invocation. Failures are
// classified as ErrNetwork, *HTTPError or ErrEmptyChoices.
func (o *OpenAIUsecase) Generate(ctx context.Context, resolvedPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: SystemInstruction,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: resolvedPrompt,
		},
	}

	tokenCount, err := openai_tools.CountToken(messages, o.cfg.OpenAIModel)
	if err != nil {
		o.logger.Warn("failed to count prompt tokens", zap.Error(err))
	} else {
		o.logger.Debug("sending prompt", zap.Int("tokens", tokenCount))
	}

	clientConfig := openai.DefaultConfig(o.cfg.OpenAIAPIKey)
	clientConfig.BaseURL = o.cfg.OpenAIBaseURL
	c := openai.NewClientWithConfig(clientConfig)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.CreateChatCompletion(
		ctx, openai.ChatCompletionRequest{
			Model:       o.cfg.OpenAIModel,
			Temperature: o.cfg.ModelTemperature,
			TopP:        1,
			N:           1,
			Messages:    messages,
		},
	)
	if err != nil {
		return "", classifyRequestErr(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyRequestErr splits client failures into the two transport-tier
// kinds: the server answered with a non-success status, or the request
// never got a response at all (timeouts included).
func classifyRequestErr(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Status: apiErr.HTTPStatusCode}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &HTTPError{Status: reqErr.HTTPStatusCode}
	}
	return fmt.Errorf("%w: %s", ErrNetwork, err)
}
