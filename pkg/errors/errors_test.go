package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("%w: phone number is required", ErrValidation)
	if !Is(err, ErrValidation) {
		t.Fatalf("expected %v to match ErrValidation", err)
	}
	if Is(err, ErrInFlight) {
		t.Fatalf("did not expect %v to match ErrInFlight", err)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	if Wrap(nil, "ignored") != nil {
		t.Fatalf("expected nil for nil error")
	}

	cause := errors.New("boom")
	err := Wrap(cause, "end call")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to keep cause")
	}
}
