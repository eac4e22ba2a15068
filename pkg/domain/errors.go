package domain

import (
	"errors"
	"fmt"
)

// Code classifies a fault for the response envelope, the audit trail and
// HTTP status mapping.
type Code string

const (
	CodeValidation         Code = "ValidationError"
	CodeCapabilityNotFound Code = "CapabilityNotFoundError"
	CodeCapabilityDisabled Code = "CapabilityDisabledError"
	CodeExternalCall       Code = "ExternalCallError"
	CodeTopologyLoad       Code = "TopologyLoadError"
	CodeTopologyCycle      Code = "TopologyCycleError"
	CodeInternal           Code = "InternalError"
)

// ErrCacheMiss is returned by a ResponseCache when a fingerprint is absent
// or its entry has expired.
var ErrCacheMiss = errors.New("cache miss")

// ErrSessionNotFound is returned when a session has no stored history.
var ErrSessionNotFound = errors.New("session not found")

// Error is the typed fault carried through node outcomes and response
// envelopes. Transient marks faults worth retrying (timeouts, connection
// resets, 5xx responses).
type Error struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Node      string `json:"node,omitempty"`
	Transient bool   `json:"-"`

	cause error
}

func (e *Error) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s [%s]: %s", e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError creates a classified error without a cause.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError classifies an underlying error, preserving it for errors.Is/As.
func WrapError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}

// WithNode returns a copy annotated with the originating node id.
func (e *Error) WithNode(node string) *Error {
	cp := *e
	cp.Node = node
	return &cp
}

// AsTransient marks the error as retryable.
func (e *Error) AsTransient() *Error {
	cp := *e
	cp.Transient = true
	return &cp
}

// NewCapabilityNotFound reports a registry lookup for an unknown name.
func NewCapabilityNotFound(name string) *Error {
	return NewError(CodeCapabilityNotFound, "capability %q not found", name)
}

// NewCapabilityDisabled reports a lookup for a present but disabled entry.
func NewCapabilityDisabled(name string) *Error {
	return NewError(CodeCapabilityDisabled, "capability %q is disabled", name)
}

// CodeOf extracts the taxonomy code from an error chain, defaulting to
// CodeInternal for unclassified faults.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// IsTransient reports whether err is a retryable external fault.
func IsTransient(err error) bool {
	var de *Error
	return errors.As(err, &de) && de.Transient
}
