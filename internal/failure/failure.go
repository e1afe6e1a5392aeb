package failure

import (
	"errors"
	"fmt"
	"net/http"
)

// Code categorizes a failure so callers can branch on it without parsing messages.
type Code string

const (
	// CodeEmptyInput means generation produced no usable text.
	CodeEmptyInput Code = "EMPTY_INPUT"

	// CodeInvalidSyntax means the script is still unparsable after every repair pass.
	CodeInvalidSyntax Code = "INVALID_SYNTAX"

	// CodeEntryPointNotFound means no scene class could be found in the script.
	CodeEntryPointNotFound Code = "ENTRY_POINT_NOT_FOUND"

	// CodeRenderFailed means the engine exited non-zero or could not be started.
	CodeRenderFailed Code = "RENDER_FAILED"

	// CodeRenderTimeout means the engine exceeded its wall-clock bound.
	CodeRenderTimeout Code = "RENDER_TIMEOUT"

	// CodeArtifactNotFound means the render finished but no video was located.
	CodeArtifactNotFound Code = "ARTIFACT_NOT_FOUND"

	// CodeGenerationFailed means the code-generation endpoint errored or was unreachable.
	CodeGenerationFailed Code = "GENERATION_FAILED"

	CodeInvalidRequest Code = "INVALID_REQUEST"
	CodeClipNotFound   Code = "CLIP_NOT_FOUND"
	CodeStitchFailed   Code = "STITCH_FAILED"
	CodeInternal       Code = "INTERNAL"
)

// Error is the typed failure returned by every pipeline stage.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is short and safe to show to a client.
	Message string

	// Line is the 1-based source line for syntax failures, zero otherwise.
	Line int

	// Err is the underlying cause, kept for logs.
	Err error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", e.Code, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(code Code, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
// Uses errors.As to handle wrapped errors.
func Is(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Line > 0 {
			return fmt.Sprintf("line %d: %s", fe.Line, fe.Message)
		}
		return fe.Message
	}
	return "an unexpected internal error occurred"
}

// HTTPStatus maps a code onto the status the API responds with.
func HTTPStatus(code Code) int {
	switch code {
	case CodeEmptyInput, CodeInvalidSyntax, CodeEntryPointNotFound:
		return http.StatusUnprocessableEntity
	case CodeRenderTimeout:
		return http.StatusGatewayTimeout
	case CodeArtifactNotFound, CodeClipNotFound:
		return http.StatusNotFound
	case CodeGenerationFailed:
		return http.StatusServiceUnavailable
	case CodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
