package pipeline

import "net/http"

// Kind tags a pipeline failure for status mapping.
type Kind string

const (
	KindInvalidFileType   Kind = "invalid_file_type"
	KindFileTooLarge      Kind = "file_too_large"
	KindInvalidPrompt     Kind = "invalid_prompt"
	KindStagingFailure    Kind = "staging_failure"
	KindOCRFailure        Kind = "ocr_failure"
	KindExtractionFailure Kind = "extraction_failure"
	KindTimeout           Kind = "timeout"
	KindInternal          Kind = "internal_error"
)

// Error is the single failure type a request can resolve to. Message is the
// stable client-visible text; the underlying cause stays in the server logs.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps the failure kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidFileType, KindInvalidPrompt:
		return http.StatusBadRequest
	case KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}
