package fabric

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrDanglingConnection = errors.New("dangling connection")
	ErrInvalidEndpoint    = errors.New("invalid endpoint")
	ErrHostNotMapped      = errors.New("host not mapped")
	ErrDuplicatePort      = errors.New("duplicate port")
	ErrInvalidRecord      = errors.New("invalid record")
)

// Error provides structured error information for fabric operations.
type Error struct {
	Op      string // Operation that failed (e.g., "register", "find_path")
	Entity  string // Entity type (e.g., "port", "array", "host")
	ID      string // Entity identifier (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.ID != "" && e.Context != "":
		return fmt.Sprintf("%s %s %s (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
	case e.ID != "":
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Context != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
	}
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error's cause.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building Errors.
type ErrorBuilder struct {
	err Error
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Op: op}}
}

// Port sets the entity to "port" with the given WWPN.
func (b *ErrorBuilder) Port(wwpn string) *ErrorBuilder {
	b.err.Entity = "port"
	b.err.ID = wwpn
	return b
}

// Array sets the entity to "array" with the given name.
func (b *ErrorBuilder) Array(name string) *ErrorBuilder {
	b.err.Entity = "array"
	b.err.ID = name
	return b
}

// Node sets the entity to "node" with the given name.
func (b *ErrorBuilder) Node(name string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = name
	return b
}

// Host sets the entity to "host" with the given initiator WWPN.
func (b *ErrorBuilder) Host(wwpn string) *ErrorBuilder {
	b.err.Entity = "host"
	b.err.ID = wwpn
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	e := b.err
	return &e
}

// PortNotFoundError creates a port not found error.
func PortNotFoundError(op, wwpn string) error {
	return NewError(op).Port(wwpn).Cause(ErrNotFound).Err()
}

// DuplicatePortError reports a WWPN already registered under another role.
func DuplicatePortError(wwpn string, existing, incoming Role) error {
	return NewError("register").Port(wwpn).
		Context(fmt.Sprintf("registered as %s, got %s", existing, incoming)).
		Cause(ErrDuplicatePort).Err()
}

// InvalidEndpointError reports a path query on a non-endpoint port.
func InvalidEndpointError(wwpn string, role Role) error {
	return NewError("find_path").Port(wwpn).
		Context("role " + role.String()).
		Cause(ErrInvalidEndpoint).Err()
}

// HostNotMappedError reports an initiator that appears in no zone.
func HostNotMappedError(wwpn string) error {
	return NewError("check_connectivity").Host(wwpn).Cause(ErrHostNotMapped).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
