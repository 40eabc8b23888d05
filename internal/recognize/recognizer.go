// Package recognize converts audio chunks to text via external speech
// recognition services. Two backends are available: the free Google web
// speech endpoint and the OpenAI transcription API.
package recognize

import (
	"context"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Backend names accepted by New.
const (
	BackendGoogle = "google"
	BackendOpenAI = "openai"
)

// Recognizer converts a single audio chunk to text.
//
// A recognizer performs exactly one attempt per call; callers own the retry
// policy. Implementations classify failures into the apierr sentinels so
// callers can decide retryability.
type Recognizer interface {
	// Recognize transcribes the audio file at chunkPath. language is a
	// BCP-47 tag, or empty for auto-detection. An empty-but-successful
	// recognition returns ErrUnintelligible.
	Recognize(ctx context.Context, chunkPath, language string) (string, error)
}

// httpDoer abstracts the HTTP client for testing.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// audioTranscriber is the slice of the OpenAI client the openai backend
// needs. *openai.Client implements this implicitly.
type audioTranscriber interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Compile-time interface compliance checks.
var (
	_ Recognizer       = (*GoogleRecognizer)(nil)
	_ Recognizer       = (*OpenAIRecognizer)(nil)
	_ audioTranscriber = (*openai.Client)(nil)
	_ httpDoer         = (*http.Client)(nil)
)

// New constructs the named backend. BackendGoogle needs no credentials;
// BackendOpenAI reads OPENAI_API_KEY from the environment.
func New(backend string) (Recognizer, error) {
	switch backend {
	case BackendGoogle, "":
		return NewGoogleRecognizer(), nil
	case BackendOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, ErrAPIKeyMissing
		}
		return NewOpenAIRecognizer(apiKey), nil
	default:
		return nil, ErrUnknownBackend
	}
}
