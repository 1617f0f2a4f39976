package bridge

import (
	"errors"

	"github.com/daikw/judy/internal/character"
	"github.com/daikw/judy/internal/chat"
	"github.com/daikw/judy/internal/session"
	"github.com/daikw/judy/internal/voice"
)

// Describe turns an error into a message for the user
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, chat.ErrProviderUnavailable):
		return "The model is overloaded right now. Please try again in a moment."
	case errors.Is(err, chat.ErrProviderError):
		return "The model could not answer: " + rootCause(err).Error()
	case errors.Is(err, voice.ErrSynthesis):
		return "Speech synthesis failed: " + rootCause(err).Error()
	case errors.Is(err, character.ErrNotFound):
		return "Character not found."
	case errors.Is(err, character.ErrInvalidName):
		return "Invalid character id."
	case errors.Is(err, session.ErrNoCharacters):
		return "No characters are available."
	default:
		return err.Error()
	}
}

// rootCause follows single-error wrapping to the innermost error
func rootCause(err error) error {
	for {
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			errs := u.Unwrap()
			if len(errs) == 0 {
				return err
			}
			err = errs[len(errs)-1]
		case interface{ Unwrap() error }:
			next := u.Unwrap()
			if next == nil {
				return err
			}
			err = next
		default:
			return err
		}
	}
}
