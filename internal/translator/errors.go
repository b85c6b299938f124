package translator

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ErrorType int

const (
	// ErrInvalidRequest: cue text or target language missing.
	ErrInvalidRequest ErrorType = iota
	// ErrAuthentication: no credential, or the provider rejected it.
	ErrAuthentication
	// ErrProvider: the completion call itself failed.
	ErrProvider
)

// ErrCredentialRejected is wrapped by providers when the remote side refuses the credential.
var ErrCredentialRejected = errors.New("credential rejected by provider")

type Error struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func WrapError(err error, errorType ErrorType, message string) *Error {
	e := NewError(errorType, message)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrInvalidRequest:
		return "InvalidRequest"
	case ErrAuthentication:
		return "Authentication"
	case ErrProvider:
		return "Provider"
	default:
		return "Unknown"
	}
}

// IsErrorType reports whether err is, or wraps, an *Error of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errorType
	}
	return false
}
