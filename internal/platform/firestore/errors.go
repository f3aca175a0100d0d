package firestore

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errorKind classifies a backend failure into the categories the repository
// layer branches on.
type errorKind int

const (
	kindUnknown errorKind = iota
	kindNotFound
	kindConflict
	kindUnavailable
)

// Error carries an operation name and a repository category for a Firestore
// failure. It satisfies repositories.RepositoryError.
type Error struct {
	op   string
	kind errorKind
	err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.op == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

func (e *Error) IsNotFound() bool    { return e != nil && e.kind == kindNotFound }
func (e *Error) IsConflict() bool    { return e != nil && e.kind == kindConflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.kind == kindUnavailable }

// classify maps the gRPC status codes surfaced by session and order operations.
// NotFound covers missing documents; AlreadyExists, FailedPrecondition, and
// Aborted cover create collisions and version-guard failures inside
// transactions; the remainder are treated as transient backend trouble.
func classify(code codes.Code) errorKind {
	switch code {
	case codes.NotFound:
		return kindNotFound
	case codes.AlreadyExists, codes.FailedPrecondition, codes.Aborted:
		return kindConflict
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal:
		return kindUnavailable
	}
	return kindUnknown
}

// WrapError attaches repository semantics to a Firestore failure. Context
// cancellation is passed through unchanged so callers keep their errors.Is
// checks; an already-wrapped error only gains the operation name.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if status.Code(err) == codes.Canceled {
		return context.Canceled
	}

	var wrapped *Error
	if errors.As(err, &wrapped) {
		if wrapped.op == "" {
			wrapped.op = op
		}
		return wrapped
	}
	return &Error{op: op, kind: classify(status.Code(err)), err: err}
}
