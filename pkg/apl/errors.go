// pkg/apl/errors.go
package apl

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the remote APL client. Callers branch on
// the kind, never on the message.
type ErrorKind string

const (
	KindResponseNon200      ErrorKind = "RESPONSE_NON_200"
	KindFailedToReachAPI    ErrorKind = "FAILED_TO_REACH_API"
	KindResponseBodyInvalid ErrorKind = "RESPONSE_BODY_INVALID"
	KindErrorSavingData     ErrorKind = "ERROR_SAVING_DATA"
	KindErrorDeletingData   ErrorKind = "ERROR_DELETING_DATA"
)

// Error is returned by RemoteAPL operations.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("apl %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("apl %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
