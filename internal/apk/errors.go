package apk

import "fmt"

// ErrorKind classifies analysis errors. Fatal kinds abort the whole request;
// per-unit kinds are recorded as diagnostics and analysis continues.
type ErrorKind int

const (
	// ErrInvalidSnapshot: the package snapshot is missing or undecodable. Fatal.
	ErrInvalidSnapshot ErrorKind = iota
	// ErrMissingManifest: the snapshot carries no manifest records. Fatal.
	ErrMissingManifest
	// ErrMalformedDex: a DEX table is structurally broken. Fatal.
	ErrMalformedDex
	// ErrMethodDecode: one method's bytecode could not be decoded. Per-unit.
	ErrMethodDecode
	// ErrUnknownOpcode: an opcode outside the known table. Per-unit, the
	// instruction is skipped and flagged.
	ErrUnknownOpcode
	// ErrNotFound: a reference-table index is out of range. Per-unit.
	ErrNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidSnapshot:
		return "invalid snapshot"
	case ErrMissingManifest:
		return "missing manifest"
	case ErrMalformedDex:
		return "malformed dex"
	case ErrMethodDecode:
		return "method decode failure"
	case ErrUnknownOpcode:
		return "unknown opcode"
	case ErrNotFound:
		return "not found"
	}
	return "unknown error"
}

// Error is a structured analysis error.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the error must abort the whole analysis request.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case ErrInvalidSnapshot, ErrMissingManifest, ErrMalformedDex:
		return true
	}
	return false
}

// Diagnostic records a non-fatal, per-unit failure. A single obfuscated method
// never blocks analysis of the remaining binary; it shows up here instead.
type Diagnostic struct {
	Kind   ErrorKind
	Dex    string
	Class  string
	Method string
	Reason string
}

func (d Diagnostic) String() string {
	where := d.Class
	if d.Method != "" {
		where = d.Class + "." + d.Method
	}
	return fmt.Sprintf("[%s] %s: %s", d.Kind, where, d.Reason)
}
