package skills

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// ValidationError reports every field of a skill's metadata that failed
// validation. Each detail has the form "<field path>: <reason>".
type ValidationError struct {
	Message string
	errs    *multierror.Error
}

// NewValidationError wraps accumulated field errors
func NewValidationError(message string, errs *multierror.Error) *ValidationError {
	return &ValidationError{Message: message, errs: errs}
}

// NewValidationErrorf builds a validation error from plain detail strings
func NewValidationErrorf(message string, details ...string) *ValidationError {
	var merr *multierror.Error
	for _, d := range details {
		merr = multierror.Append(merr, errors.New(d))
	}
	return &ValidationError{Message: message, errs: merr}
}

// Details returns one message per violated field
func (e *ValidationError) Details() []string {
	if e.errs == nil {
		return nil
	}
	details := make([]string, 0, len(e.errs.Errors))
	for _, err := range e.errs.Errors {
		details = append(details, err.Error())
	}
	return details
}

func (e *ValidationError) Error() string {
	details := e.Details()
	if len(details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(details, "; "))
}

// Unwrap exposes the accumulated field errors
func (e *ValidationError) Unwrap() error {
	if e.errs == nil {
		return nil
	}
	return e.errs
}

// NotFoundError is returned when a skill is absent from the local index
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("skill not found: %s", e.Name)
}

// SourceUnavailableError describes a trawl source that failed. It is logged
// and converted to an empty result, never returned from a trawl.
type SourceUnavailableError struct {
	Source Source
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// RegistryUnreachableError is returned when neither the remote catalog nor
// the persisted local index can serve skills
type RegistryUnreachableError struct {
	URL string
	Err error
}

func (e *RegistryUnreachableError) Error() string {
	return fmt.Sprintf("cannot reach registry at %s: %v", e.URL, e.Err)
}

func (e *RegistryUnreachableError) Unwrap() error { return e.Err }

// InstallError is returned when a skill cannot be installed
type InstallError struct {
	Message string
	Err     error
}

func (e *InstallError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsRegistryUnreachable reports whether err is or wraps a RegistryUnreachableError
func IsRegistryUnreachable(err error) bool {
	var target *RegistryUnreachableError
	return errors.As(err, &target)
}
