package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	types "github.com/yungbote/unifind-backend/internal/domain"
)

var (
	ErrTransient         = errors.New("transient provider error")
	ErrCredentialExpired = errors.New("provider credential expired")
)

// Error carries the failing source and its taxonomy kind. errors.Is matches
// both the kind sentinel and the underlying cause.
type Error struct {
	Source types.StorageType
	Kind   error
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// StatusError is a non-2xx response from a provider REST endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.Code)
	}
	return fmt.Sprintf("http status %d: %s", e.Code, e.Body)
}

func kindForStatus(code int) error {
	if code == http.StatusUnauthorized {
		return ErrCredentialExpired
	}
	return ErrTransient
}

// classify maps any adapter failure onto the provider error taxonomy.
func classify(source types.StorageType, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &Error{Source: source, Kind: kindForStatus(gerr.Code), Err: err}
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		return &Error{Source: source, Kind: kindForStatus(serr.Code), Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{Source: source, Kind: ErrTransient, Err: err}
}
