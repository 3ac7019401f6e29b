// Package wcserr classifies the failures a run can end with.
package wcserr

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork    = errors.New("network error")
	ErrParse      = errors.New("parse error")
	ErrConfig     = errors.New("config error")
	ErrFilesystem = errors.New("filesystem error")
)

type classified struct {
	kind  error
	cause error
}

func (e *classified) Error() string { return e.cause.Error() }

// Unwrap exposes both the class and the cause to errors.Is/As.
func (e *classified) Unwrap() []error { return []error{e.kind, e.cause} }

// Wrap tags err with kind. A nil err stays nil.
func Wrap(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return &classified{kind: kind, cause: err}
}

// Wrapf formats a message around err and tags it with kind.
func Wrapf(kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(kind, fmt.Errorf(format+": %w", append(args, err)...))
}

// Errorf builds a new error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return Wrap(kind, fmt.Errorf(format, args...))
}

// Kind returns a short class name for err, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrFilesystem):
		return "filesystem"
	default:
		return "unknown"
	}
}
