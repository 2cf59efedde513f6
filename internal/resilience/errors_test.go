package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient_ExplicitTransientError(t *testing.T) {
	err := NewTransientError(errors.New("server overloaded"), 503)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	if IsTransient(errors.New("invalid input")) {
		t.Error("regular error should not be transient")
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"429", NewTransientError(errors.New("too many"), 429), true},
		{"wrapped 429", fmt.Errorf("fetch: %w", NewTransientError(errors.New("too many"), 429)), true},
		{"503", NewTransientError(errors.New("unavailable"), 503), false},
		{"exhausted 429", &ExhaustedError{Attempts: 5, Err: NewTransientError(errors.New("too many"), 429)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExhaustedError(t *testing.T) {
	inner := errors.New("http 429")
	err := fmt.Errorf("code 69381: %w", &ExhaustedError{Attempts: 5, Err: inner})

	if !IsExhausted(err) {
		t.Error("expected IsExhausted")
	}
	if !errors.Is(err, inner) {
		t.Error("expected unwrap to reach inner error")
	}
	if IsExhausted(inner) {
		t.Error("plain error is not exhausted")
	}
}
