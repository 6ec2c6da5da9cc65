package failure

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIO          = errors.New("i/o failure")
	ErrUnsupported = errors.New("unsupported module format")
	ErrVersion     = errors.New("version mismatch")
	ErrTransaction = errors.New("transaction failure")
	ErrValidation  = errors.New("validation error")
	ErrLocked      = errors.New("index is locked by another process")
)

// Kind labels used in structured logs.
const (
	KindIO          = "io"
	KindUnsupported = "unsupported"
	KindVersion     = "version"
	KindTransaction = "transaction"
	KindValidation  = "validation"
	KindLocked      = "locked"
	KindCanceled    = "canceled"
	KindInternal    = "internal"
)

// Error is a marked error carrying component and operation context.
type Error struct {
	marker    error
	component string
	operation string
	err       error
}

// Wrap tags err with marker and a component/operation prefix. The marker
// should be one of the exported sentinels above.
func Wrap(marker error, component, operation string, err error) error {
	if marker == nil {
		marker = ErrIO
	}
	return &Error{marker: marker, component: component, operation: operation, err: err}
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if c := strings.TrimSpace(e.component); c != "" {
		parts = append(parts, c)
	}
	if op := strings.TrimSpace(e.operation); op != "" {
		parts = append(parts, op)
	}
	detail := strings.Join(parts, ": ")
	switch {
	case detail == "" && e.err == nil:
		return e.marker.Error()
	case e.err == nil:
		return fmt.Sprintf("%s: %s", detail, e.marker)
	case detail == "":
		return fmt.Sprintf("%s: %v", e.marker, e.err)
	default:
		return fmt.Sprintf("%s: %v", detail, e.err)
	}
}

// Unwrap exposes both the marker and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.err == nil {
		return []error{e.marker}
	}
	return []error{e.marker, e.err}
}

// Kind returns the error's classification.
func (e *Error) Kind() string {
	return kindOf(e.marker)
}

// Kind classifies any error by the first marker it carries.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var classifier interface{ Kind() string }
	if errors.As(err, &classifier) {
		return classifier.Kind()
	}
	return kindOf(err)
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	case errors.Is(err, ErrVersion):
		return KindVersion
	case errors.Is(err, ErrTransaction):
		return KindTransaction
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrLocked):
		return KindLocked
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
