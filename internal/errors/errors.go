package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/julianstephens/routinely/internal/logger"
)

// Error kinds. Match them with errors.Is.
var (
	ErrNotFound   = stderrors.New("not found")
	ErrValidation = stderrors.New("validation failed")
	ErrStoreWrite = stderrors.New("store write failed")
	ErrStoreRead  = stderrors.New("store read failed")
	ErrDelivery   = stderrors.New("delivery failed")
)

// Error carries a kind, the operation that failed and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Kind == ErrValidation || e.Kind == ErrNotFound:
		// validation and not-found messages are shown to users verbatim
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return e.Kind == target }

// NotFound reports an unknown or foreign routine, task or owner.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Validation reports malformed input rejected before any store mutation.
func Validation(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: ErrValidation, Op: op, Err: err}
}

// StoreWrite wraps a persistence failure on a mutating path. Errors that are
// already classified pass through unchanged.
func StoreWrite(op string, err error) error {
	return classify(ErrStoreWrite, op, err)
}

// StoreRead wraps a persistence failure on a read path.
func StoreRead(op string, err error) error {
	return classify(ErrStoreRead, op, err)
}

// Delivery wraps a per-recipient send failure.
func Delivery(recipient string, err error) error {
	return &Error{Kind: ErrDelivery, Op: "send to " + recipient, Err: err}
}

func classify(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stderrors.As(err, &typed) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("timed out: %w", err)
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
