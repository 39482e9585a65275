package conversation

import (
	"errors"
	"fmt"
)

var (
	// ErrPersonaNotFound means the requested persona does not exist.
	ErrPersonaNotFound = errors.New("conversation: persona not found")
	// ErrGenerationFailure wraps unexpected failures of the final generation call.
	ErrGenerationFailure = errors.New("conversation: generation failed")
)

// PersonaNotFoundMessage is what callers show when ErrPersonaNotFound surfaces.
const PersonaNotFoundMessage = "페르소나 정보를 찾을 수 없습니다."

// BackendError marks a failure reported by a language-model provider
// (transport, quota, rejected request). Stages treat it as recoverable.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("conversation: %s backend: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Provider: provider, Err: err}
}

// IsBackendError reports whether err carries a *BackendError.
func IsBackendError(err error) bool {
	var be *BackendError
	return errors.As(err, &be)
}
