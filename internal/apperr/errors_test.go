package apperr

import (
	"fmt"
	"strings"
	"testing"
)

func TestUserMessage_InvalidDateHint(t *testing.T) {
	err := fmt.Errorf("review: %w: %q", ErrInvalidDate, "two weeks")
	msg := UserMessage(err)
	if !strings.Contains(msg, `"in two weeks"`) {
		t.Errorf("message = %q, want the preposition hint", msg)
	}
}

func TestUserMessage_WrappedWrite(t *testing.T) {
	err := fmt.Errorf("persist: %w", fmt.Errorf("%w: disk full", ErrDocumentWrite))
	if got := UserMessage(err); !strings.Contains(got, "could not be saved") {
		t.Errorf("message = %q", got)
	}
}

func TestUserMessage_Nil(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("message = %q, want empty", got)
	}
}
