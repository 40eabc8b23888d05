package recognize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mhjang/speech2text/internal/apierr"
	"github.com/mhjang/speech2text/internal/lang"
)

// modelTranscribe is the cost-effective OpenAI transcription model.
const modelTranscribe = "gpt-4o-mini-transcribe"

// OpenAIRecognizer transcribes chunks through the OpenAI audio API.
type OpenAIRecognizer struct {
	client audioTranscriber
}

// OpenAIOption configures an OpenAIRecognizer.
type OpenAIOption func(*OpenAIRecognizer)

// WithOpenAIClient sets a custom transcription client (for testing).
func WithOpenAIClient(c audioTranscriber) OpenAIOption {
	return func(r *OpenAIRecognizer) { r.client = c }
}

// NewOpenAIRecognizer creates a recognizer backed by the OpenAI API.
func NewOpenAIRecognizer(apiKey string, opts ...OpenAIOption) *OpenAIRecognizer {
	r := &OpenAIRecognizer{
		client: openai.NewClient(apiKey),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recognize transcribes one chunk. The OpenAI API only accepts ISO 639-1
// base codes, so regional tags are reduced before sending.
func (r *OpenAIRecognizer) Recognize(ctx context.Context, chunkPath, language string) (string, error) {
	req := openai.AudioRequest{
		Model:    modelTranscribe,
		FilePath: chunkPath,
		Format:   openai.AudioResponseFormatJSON,
		Language: lang.BaseCode(language),
	}

	resp, err := r.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}

// classifyOpenAIError maps OpenAI API errors to the apierr sentinels.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			// Quota exhaustion also surfaces as 429 but needs user
			// action, so it must not be retried.
			if strings.Contains(apiErr.Message, "quota") ||
				strings.Contains(apiErr.Message, "billing") {
				return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrQuotaExceeded)
			}
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrRateLimit)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrAuthFailed)
		case http.StatusRequestTimeout, http.StatusGatewayTimeout,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrTimeout)
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%s: %w", apiErr.Message, apierr.ErrBadRequest)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", apierr.ErrTimeout)
	}

	return err
}
