package recognize

import "errors"

// ErrUnintelligible indicates the service could not recognize any speech in
// the audio. This is a definitive answer, not a transient failure.
var ErrUnintelligible = errors.New("speech unintelligible")

// ErrRecognitionFailed indicates the recognition request failed for a reason
// other than the API sentinel errors.
var ErrRecognitionFailed = errors.New("recognition failed")

// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
var ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

// ErrUnknownBackend indicates an unrecognized backend name.
var ErrUnknownBackend = errors.New("unknown recognition backend")
