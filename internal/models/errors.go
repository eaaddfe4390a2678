package models

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates every failure cause the core distinguishes.
type ErrorKind string

const (
	KindInvalidContentType   ErrorKind = "invalid_content_type"
	KindRecognitionTransport ErrorKind = "recognition_transport_failure"
	KindRecognitionParse     ErrorKind = "recognition_parse_failure"
	KindNoFood               ErrorKind = "model_reported_no_food"
	KindStoreIO              ErrorKind = "store_io_failure"
)

// Error is an error tagged with its kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrInvalidContentType = &Error{Kind: KindInvalidContentType}
	ErrStoreIO            = &Error{Kind: KindStoreIO}
)

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors (no Op, no Err) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// NewError tags err with kind and the failing operation.
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
