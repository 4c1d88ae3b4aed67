package eval

import (
	"time"

	"mercator-hq/covenant/pkg/mcl/builtins"
	"mercator-hq/covenant/pkg/mcl/value"
)

// Context carries the optional per-evaluation inputs. A nil *Context is
// valid and means: wall clock, no previous snapshot.
type Context struct {
	// EvaluationTimestamp freezes now(). Replays and audits must set it so
	// that a decision can be reproduced later.
	EvaluationTimestamp string

	// Previous is the prior state of the document, used by changed(),
	// previous() and delta().
	Previous value.Value

	// Clock overrides the wall clock when no timestamp is frozen.
	Clock func() time.Time
}

// Frozen returns a context whose now() always reports timestamp.
func Frozen(timestamp string) *Context {
	return &Context{EvaluationTimestamp: timestamp}
}

// Now returns what now() evaluates to under this context.
func (c *Context) Now() string {
	if c != nil && c.EvaluationTimestamp != "" {
		return c.EvaluationTimestamp
	}
	clock := time.Now
	if c != nil && c.Clock != nil {
		clock = c.Clock
	}
	return builtins.FormatTimestamp(clock())
}

func (c *Context) previous() value.Value {
	if c == nil || c.Previous == nil {
		return value.Absent
	}
	return c.Previous
}

// builtinCall builds the per-evaluation view handed to builtins.
func (c *Context) builtinCall(root value.Value) *builtins.Call {
	return &builtins.Call{
		Now:      c.Now,
		Current:  root,
		Previous: c.previous(),
	}
}
