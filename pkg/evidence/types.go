package evidence

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Result is the stored outcome of one constraint evaluation.
type Result string

const (
	ResultPass     Result = "pass"
	ResultViolated Result = "violated"
	ResultError    Result = "error"
)

// IsValid reports whether r is one of the three outcomes.
func (r Result) IsValid() bool {
	switch r {
	case ResultPass, ResultViolated, ResultError:
		return true
	}
	return false
}

// Record is the audit trail of one constraint evaluated against one
// document. It carries everything needed to reproduce the decision: the
// expression, the canonical document and the frozen evaluation timestamp.
type Record struct {
	ID           string `json:"id"`            // UUID v4
	EvaluationID string `json:"evaluation_id"` // shared by the records of one report

	SchemaID        string `json:"schema_id"`
	ContractVersion string `json:"contract_version"`
	ConstraintID    string `json:"constraint_id"`
	Severity        string `json:"severity"`
	Expression      string `json:"expression"`

	// DocumentHash is the hex SHA-256 of the canonical JSON document. It is
	// kept even when the document itself is not.
	DocumentHash string          `json:"document_hash"`
	Document     json.RawMessage `json:"document,omitempty"`
	Previous     json.RawMessage `json:"previous,omitempty"`

	// EvaluationTimestamp is what now() returned during the evaluation.
	EvaluationTimestamp string `json:"evaluation_timestamp"`

	Result       Result `json:"result"`
	ErrorKind    string `json:"error_kind,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// TraceContext holds the W3C trace headers of the evaluation span.
	TraceContext map[string]string `json:"trace_context,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// Replayable reports whether the record kept its document.
func (r *Record) Replayable() bool {
	return len(r.Document) > 0
}

// Query filters evidence records. Zero values match everything.
type Query struct {
	SchemaID     string `json:"schema_id,omitempty"`
	ConstraintID string `json:"constraint_id,omitempty"`
	EvaluationID string `json:"evaluation_id,omitempty"`
	Result       Result `json:"result,omitempty"`

	// StartTime and EndTime bound RecordedAt, inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder orders by RecordedAt: "asc" or "desc" (default).
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage is an evidence backend. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a record. Storing an existing ID is an error.
	Store(ctx context.Context, record *Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// Query returns the records matching query; an empty slice if none do.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams the records matching query. Both channels are
	// closed when the query completes; errCh carries at most one error.
	//
	//	recordsCh, errCh, err := store.QueryStream(ctx, q)
	//	if err != nil {
	//	    return err
	//	}
	//	for record := range recordsCh {
	//	    // ...
	//	}
	//	if err := <-errCh; err != nil {
	//	    return err
	//	}
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching query. Limit and Offset
	// are ignored.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes the records matching query and returns how many were
	// removed. Limit and Offset are ignored.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases the backend's resources.
	Close() error
}

// Exporter writes records in some output format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}

// ResultOf classifies an evaluation outcome. Errors take precedence over
// the boolean.
func ResultOf(passed bool, err error) Result {
	switch {
	case err != nil:
		return ResultError
	case passed:
		return ResultPass
	default:
		return ResultViolated
	}
}
