package engine

import (
	"time"

	"mercator-hq/covenant/pkg/constraint"
	"mercator-hq/covenant/pkg/evidence"
)

// Result is the outcome of one constraint.
type Result struct {
	ConstraintID string              `json:"constraint_id"`
	Severity     constraint.Severity `json:"severity"`
	Outcome      evidence.Result     `json:"outcome"`

	// Passed is true only for OutcomePass.
	Passed bool `json:"passed"`

	// Error is the evaluation error for an erroring constraint.
	Error        error  `json:"-"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Message is the constraint's message, set when it did not pass.
	Message string `json:"message,omitempty"`

	// RecordID is the evidence record written for this result, if any.
	RecordID string `json:"record_id,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// Report is the outcome of evaluating one constraint file against one
// document.
type Report struct {
	EvaluationID        string        `json:"evaluation_id"`
	SchemaID            string        `json:"schema_id"`
	ContractVersion     string        `json:"contract_version"`
	Source              string        `json:"source,omitempty"`
	EvaluationTimestamp string        `json:"evaluation_timestamp"`
	FailMode            FailMode      `json:"fail_mode"`
	Results             []Result      `json:"results"`
	Duration            time.Duration `json:"duration_ns"`
}

// Valid reports whether no error-severity constraint was violated and, in
// fail-closed mode, none errored. Warning and info constraints never
// invalidate a report.
func (r *Report) Valid() bool {
	for _, res := range r.Results {
		if res.Severity != constraint.SeverityError {
			continue
		}
		switch res.Outcome {
		case evidence.ResultViolated:
			return false
		case evidence.ResultError:
			if r.FailMode != FailOpen {
				return false
			}
		}
	}
	return true
}

// Violations returns the violated constraints of any severity.
func (r *Report) Violations() []Result {
	return r.filter(evidence.ResultViolated)
}

// Errors returns the constraints whose evaluation failed.
func (r *Report) Errors() []Result {
	return r.filter(evidence.ResultError)
}

// Counts returns the number of results per outcome.
func (r *Report) Counts() (passed, violated, errored int) {
	for _, res := range r.Results {
		switch res.Outcome {
		case evidence.ResultPass:
			passed++
		case evidence.ResultViolated:
			violated++
		case evidence.ResultError:
			errored++
		}
	}
	return passed, violated, errored
}

func (r *Report) filter(outcome evidence.Result) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == outcome {
			out = append(out, res)
		}
	}
	return out
}
