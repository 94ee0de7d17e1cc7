package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		capability bool
		mutation   bool
		stale      bool
	}{
		{
			name:       "capability",
			err:        NewCapabilityError("backdrop primitive unsupported", nil),
			capability: true,
		},
		{
			name:     "mutation",
			err:      NewMutationError("host declined", errors.New("refused")),
			mutation: true,
		},
		{
			name:  "stale",
			err:   NewStaleError("container gone"),
			stale: true,
		},
		{
			name: "internal",
			err:  NewInternalError("invariant violated", nil),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCapabilityError(tt.err); got != tt.capability {
				t.Errorf("IsCapabilityError = %v, want %v", got, tt.capability)
			}
			if got := IsMutationRejected(tt.err); got != tt.mutation {
				t.Errorf("IsMutationRejected = %v, want %v", got, tt.mutation)
			}
			if got := IsStale(tt.err); got != tt.stale {
				t.Errorf("IsStale = %v, want %v", got, tt.stale)
			}
		})
	}
}

func TestErrorClassSurvivesWrapping(t *testing.T) {
	base := NewMutationError("host declined", nil).WithContainer("container-1").WithOp("set-background")
	wrapped := fmt.Errorf("pass failed: %w", base)

	if !IsMutationRejected(wrapped) {
		t.Error("classification lost through fmt.Errorf wrapping")
	}
	var e *Error
	if !errors.As(wrapped, &e) {
		t.Fatal("errors.As failed through wrapping")
	}
	if e.Container != "container-1" || e.Op != "set-background" {
		t.Errorf("context lost: container=%q op=%q", e.Container, e.Op)
	}
}

func TestErrorMessageCarriesContext(t *testing.T) {
	err := NewMutationError("host declined", errors.New("refused")).
		WithContainer("container-9").
		WithNode("node-3").
		WithOp("insert-child")

	msg := err.Error()
	for _, want := range []string{"container-9", "node-3", "insert-child", "refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewInternalError("wrapper", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the cause")
	}
	if NewStaleError("no cause").Unwrap() != nil {
		t.Error("Unwrap should be nil without a cause")
	}
}
