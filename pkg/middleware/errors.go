package middleware

import (
	"fmt"
	"net/http"

	"holiapp/pkg/metrics"
	"holiapp/pkg/problems"
)

// ErrorKind names why an inbound request failed verification.
type ErrorKind string

const (
	KindWrongMethod                      ErrorKind = "WRONG_METHOD"
	KindMissingHostHeader                ErrorKind = "MISSING_HOST_HEADER"
	KindMissingDomainHeader              ErrorKind = "MISSING_DOMAIN_HEADER"
	KindMissingAPIURLHeader              ErrorKind = "MISSING_API_URL_HEADER"
	KindMissingAuthorizationBearerHeader ErrorKind = "MISSING_AUTHORIZATION_BEARER_HEADER"
	KindMissingEventHeader               ErrorKind = "MISSING_EVENT_HEADER"
	KindWrongEvent                       ErrorKind = "WRONG_EVENT"
	KindCantBeParsed                     ErrorKind = "CANT_BE_PARSED"
	KindMissingSignatureHeader           ErrorKind = "MISSING_SIGNATURE_HEADER"
	KindNotRegistered                    ErrorKind = "NOT_REGISTERED"
	KindJWTVerificationFailed            ErrorKind = "JWT_VERIFICATION_FAILED"
	KindSignatureVerificationFailed      ErrorKind = "SIGNATURE_VERIFICATION_FAILED"
	KindUnexpected                       ErrorKind = "UNEXPECTED_ERROR"
)

// Status is the HTTP status a kind is answered with.
func (k ErrorKind) Status() int {
	switch k {
	case KindWrongMethod:
		return http.StatusMethodNotAllowed
	case KindMissingHostHeader, KindMissingDomainHeader, KindMissingAPIURLHeader,
		KindMissingAuthorizationBearerHeader, KindMissingEventHeader, KindWrongEvent,
		KindCantBeParsed, KindMissingSignatureHeader:
		return http.StatusBadRequest
	case KindNotRegistered, KindJWTVerificationFailed, KindSignatureVerificationFailed:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// VerificationError is returned by the protected and webhook pipelines.
type VerificationError struct {
	Kind    ErrorKind
	Message string
}

func (e *VerificationError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

func fail(kind ErrorKind, format string, args ...any) *VerificationError {
	return &VerificationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// writeVerificationError answers with the kind's status and records the outcome.
func writeVerificationError(w http.ResponseWriter, pipeline string, e *VerificationError) {
	metrics.Verifications.WithLabelValues(pipeline, string(e.Kind)).Inc()
	problems.Write(w, e.Kind.Status(), string(e.Kind), e.Message)
}
