package chat

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrProviderUnavailable is returned when every attempt failed with a
	// transient error
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderError is returned for failures that are not worth retrying
	ErrProviderError = errors.New("provider error")
)

// FailureClass tells the retry loop how to treat a failed generation call
type FailureClass int

const (
	ClassPermanent FailureClass = iota
	ClassTransient
)

func (c FailureClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	default:
		return "permanent"
	}
}

// ProviderFailure is an error classified by the adapter that produced it
type ProviderFailure struct {
	Class FailureClass
	Err   error
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Class, e.Err)
}

func (e *ProviderFailure) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable
func Transient(err error) error {
	return &ProviderFailure{Class: ClassTransient, Err: err}
}

// Permanent marks err as not retryable
func Permanent(err error) error {
	return &ProviderFailure{Class: ClassPermanent, Err: err}
}

// transientMarkers are matched against unclassified error messages
var transientMarkers = []string{"503", "overloaded", "UNAVAILABLE"}

// Classify returns the failure class of err. Errors classified by an adapter
// keep their class; anything else falls back to matching known overload
// markers in the message.
func Classify(err error) FailureClass {
	if err == nil {
		return ClassPermanent
	}

	var pf *ProviderFailure
	if errors.As(err, &pf) {
		return pf.Class
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return ClassTransient
		}
	}
	return ClassPermanent
}
