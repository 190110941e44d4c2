package stt

import "fmt"

// ErrorCode classifies transcription failures so callers can render a
// specific message instead of a raw failure.
type ErrorCode string

const (
	ErrCodeNotConfigured   ErrorCode = "NOT_CONFIGURED"
	ErrCodeNoFile          ErrorCode = "NO_FILE"
	ErrCodeInvalidFormat   ErrorCode = "INVALID_FORMAT"
	ErrCodeFileTooLarge    ErrorCode = "FILE_TOO_LARGE"
	ErrCodeServer          ErrorCode = "SERVER_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeNetwork         ErrorCode = "NETWORK_ERROR"
	ErrCodeInvalidResponse ErrorCode = "INVALID_RESPONSE"
	ErrCodeUnknown         ErrorCode = "UNKNOWN"
)

// TranscribeError carries a classification code, a human-readable
// message, and optional provider detail.
type TranscribeError struct {
	Code    ErrorCode
	Message string
	Detail  string
}

func (e *TranscribeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, message string) *TranscribeError {
	return &TranscribeError{Code: code, Message: message}
}

func newErrorWithDetail(code ErrorCode, message, detail string) *TranscribeError {
	return &TranscribeError{Code: code, Message: message, Detail: detail}
}

// CodeOf extracts the classification code from an error, returning
// ErrCodeUnknown for errors that did not come from this package.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if te, ok := err.(*TranscribeError); ok {
		return te.Code
	}
	return ErrCodeUnknown
}
