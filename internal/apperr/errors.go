// Package apperr holds the sentinel errors shared across Tickler layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidDate         = errors.New("invalid date")
	ErrMissingCollaborator = errors.New("date parser unavailable")
	ErrDocumentRead        = errors.New("document read failed")
	ErrDocumentWrite       = errors.New("document write failed")
	ErrInvalidLine         = errors.New("invalid line")
)

// UserMessage renders err as the short notice shown to the person who
// triggered a review. Unknown errors get a generic message.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidDate):
		return `You've entered an invalid date (note that "two weeks" will not work, but "in two weeks" will). ` +
			"The note was not set for review. Please try again."
	case errors.Is(err, ErrMissingCollaborator):
		return "No date parser is configured, so the note cannot be set for review."
	case errors.Is(err, ErrInvalidLine):
		return fmt.Sprintf("The selected line could not be used for a block review: %v", err)
	case errors.Is(err, ErrNotFound):
		return "The note to review could not be found."
	case errors.Is(err, ErrDocumentRead):
		return "A note could not be read. Nothing was changed."
	case errors.Is(err, ErrDocumentWrite):
		return "A note could not be saved. Nothing was changed."
	default:
		return "Something went wrong. The note was not set for review."
	}
}
