package domain

// Outcome is the explicit result of one node invocation. Routing decisions
// and recoverable faults travel through this value; panics are reserved for
// truly unexpected internal faults, which the engine absorbs.
type Outcome struct {
	next string
	err  *Error
}

// Continue follows the node's default successor edge.
func Continue() Outcome { return Outcome{} }

// Redirect overrides the default edge with an explicit target node id.
func Redirect(next string) Outcome { return Outcome{next: next} }

// Fail escalates an unrecoverable node-local fault; the engine jumps to
// the topology's error handler. Unclassified errors are wrapped as
// internal faults.
func Fail(err error) Outcome {
	switch e := err.(type) {
	case nil:
		return Outcome{err: NewError(CodeInternal, "node failed without error detail")}
	case *Error:
		return Outcome{err: e}
	default:
		return Outcome{err: WrapError(CodeOf(err), err, "%s", err.Error())}
	}
}

// Next returns the explicit override target, empty for the default edge.
func (o Outcome) Next() string { return o.next }

// Err returns the fault, nil on success.
func (o Outcome) Err() *Error { return o.err }

// Failed reports whether the node escalated a fault.
func (o Outcome) Failed() bool { return o.err != nil }
