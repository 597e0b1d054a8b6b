package exam

import "errors"

// Error kinds. Everything the pipeline can fail with wraps one of
// these, so the HTTP layer can map kind -> status with errors.Is and
// batch grading can tag per-item failures.
var (
	// ErrConfiguration: missing credential or model selection.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation: bad URL, disallowed question type, malformed request.
	ErrValidation = errors.New("validation error")
	// ErrFetch: document download failed.
	ErrFetch = errors.New("fetch error")
	// ErrProviderCall: network/timeout/non-2xx/malformed envelope from an
	// embedding or LLM provider.
	ErrProviderCall = errors.New("llm call failed")
	// ErrParse: provider output not valid JSON or out of the expected shape.
	ErrParse = errors.New("parse error")
)

// ErrorKind returns the short tag for an error's kind, for per-item
// batch records and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrProviderCall):
		return "provider_call"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "internal"
	}
}
