package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestWrapErrorCategorises(t *testing.T) {
	cases := []struct {
		name        string
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{name: "not found", code: codes.NotFound, notFound: true},
		{name: "already exists", code: codes.AlreadyExists, conflict: true},
		{name: "failed precondition", code: codes.FailedPrecondition, conflict: true},
		{name: "aborted", code: codes.Aborted, conflict: true},
		{name: "unavailable", code: codes.Unavailable, unavailable: true},
		{name: "deadline", code: codes.DeadlineExceeded, unavailable: true},
		{name: "unknown", code: codes.Unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := WrapError("sessions.commit", status.Error(tc.code, "boom"))
			var wrapped *Error
			if !errors.As(err, &wrapped) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if wrapped.IsNotFound() != tc.notFound || wrapped.IsConflict() != tc.conflict || wrapped.IsUnavailable() != tc.unavailable {
				t.Fatalf("unexpected categories for %v: %+v", tc.code, wrapped)
			}
		})
	}
}

func TestWrapErrorPassesThroughCancellation(t *testing.T) {
	if err := WrapError("sessions.get", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("sessions.get", status.Error(codes.Canceled, "rpc canceled")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled mapping, got %v", err)
	}
}

func TestWrapErrorKeepsExistingWrap(t *testing.T) {
	inner := WrapError("", status.Error(codes.NotFound, "missing"))
	outer := WrapError("sessions.get", inner)
	var wrapped *Error
	if !errors.As(outer, &wrapped) {
		t.Fatalf("expected *Error, got %T", outer)
	}
	if wrapped.op != "sessions.get" {
		t.Fatalf("expected op annotation, got %q", wrapped.op)
	}
	if !wrapped.IsNotFound() {
		t.Fatal("category must survive re-wrapping")
	}
	if WrapError("op", nil) != nil {
		t.Fatal("nil error must stay nil")
	}
}
