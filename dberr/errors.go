// Package dberr defines the error kinds raised while compiling SQL.
//
// Callers match kinds with errors.Is:
//
//	if errors.Is(err, dberr.ErrNotSupported) { ... }
package dberr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSupported reports an operation the active dialect has no syntax for.
	ErrNotSupported = errors.New("not supported by this DBMS")

	// ErrInvalidArgument reports malformed input: bad condition arrays,
	// mismatched batch rows, unknown tables or missing metadata.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error carries the operation name and the offending detail.
type Error struct {
	Op   string // operation that failed, e.g. "Upsert"
	Kind error  // ErrNotSupported or ErrInvalidArgument
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Op == "":
		return e.Msg
	case e.Kind == ErrNotSupported:
		return e.Op + " " + e.Msg
	}
	return e.Op + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// NotSupported returns an ErrNotSupported error for op.
func NotSupported(op string) error {
	return &Error{Op: op, Kind: ErrNotSupported, Msg: "is not supported by this DBMS."}
}

// InvalidArgument returns an ErrInvalidArgument error for op with a formatted message.
func InvalidArgument(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}
