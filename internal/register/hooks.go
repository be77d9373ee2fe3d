package register

import "net/http"

// HookError aborts the handshake from a hook. Status defaults to 500.
type HookError struct {
	Status  int
	Message string
}

func (e *HookError) Error() string { return e.Message }

func (e *HookError) status() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// Abort builds a HookError.
func Abort(status int, message string) *HookError {
	return &HookError{Status: status, Message: message}
}
