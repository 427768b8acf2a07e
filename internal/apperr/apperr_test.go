package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindsSurviveWrapping(t *testing.T) {
	v := fmt.Errorf("link: %w", Validation("", "select at least one guest"))
	if !IsValidation(v) || IsNotFound(v) || IsTransport(v) {
		t.Fatalf("unexpected classification for %v", v)
	}
	if v.Error() != "link: select at least one guest" {
		t.Fatalf("message = %q", v.Error())
	}

	n := fmt.Errorf("set status: %w", NotFound("guest", "g1"))
	if !IsNotFound(n) {
		t.Fatalf("expected not found: %v", n)
	}
}

func TestTransportUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport("update guest", cause)
	if !IsTransport(err) {
		t.Fatal("expected transport error")
	}
	if !errors.Is(err, cause) {
		t.Fatal("transport error should unwrap to its cause")
	}
	if Transport("again", err) != err {
		t.Fatal("already wrapped errors are returned unchanged")
	}
	if Transport("noop", nil) != nil {
		t.Fatal("nil stays nil")
	}
}
