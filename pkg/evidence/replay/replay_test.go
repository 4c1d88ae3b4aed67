package replay

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/covenant/pkg/config"
	"mercator-hq/covenant/pkg/evidence"
	"mercator-hq/covenant/pkg/evidence/recorder"
	"mercator-hq/covenant/pkg/evidence/storage"
	"mercator-hq/covenant/pkg/mcl/value"
	"mercator-hq/covenant/pkg/telemetry/logging"
	"mercator-hq/covenant/pkg/telemetry/tracing"
)

const frozen = "2026-03-01T12:00:00.000Z"

const document = `{"saga": {"status": "pending", "deadline": "2026-03-02T00:00:00Z", "total_amount": 90071992547409930}}`

// record builds evidence the way the recorder does.
func record(t *testing.T, store *storage.MemoryStorage, storeDocs bool, outcomes ...recorder.Outcome) []*evidence.Record {
	t.Helper()
	doc, err := value.DecodeJSON([]byte(document))
	if err != nil {
		t.Fatal(err)
	}
	rec := recorder.New(store, &recorder.Config{StoreDocuments: storeDocs}, logging.Discard())
	defer rec.Close()

	records, err := rec.Record(context.Background(), &recorder.Evaluation{
		EvaluationID:        "eval-1",
		SchemaID:            "payment-saga",
		ContractVersion:     "1.2.0",
		EvaluationTimestamp: frozen,
		Document:            doc,
		TraceContext:        map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
	}, outcomes)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	return records
}

var (
	deadlineOutcome = recorder.Outcome{ConstraintID: "saga.before-deadline", Severity: "error", Expression: "is_before(now(), saga.deadline)", Result: evidence.ResultPass}
	bigOutcome      = recorder.Outcome{ConstraintID: "saga.total-positive", Severity: "error", Expression: "bigint_gt(saga.total_amount, 90071992547409929)", Result: evidence.ResultPass}
	statusOutcome   = recorder.Outcome{ConstraintID: "saga.committed", Severity: "warning", Expression: "saga.status == 'committed'", Result: evidence.ResultViolated}
	errorOutcome    = recorder.Outcome{ConstraintID: "saga.bad", Severity: "error", Expression: "saga.status && true", Result: evidence.ResultError, ErrorKind: "type_coercion"}
)

func TestReplayer_Replay(t *testing.T) {
	store := storage.NewMemoryStorage()
	records := record(t, store, true, deadlineOutcome, bigOutcome, statusOutcome, errorOutcome)

	r := New(logging.Discard())
	for _, rec := range records {
		t.Run(rec.ConstraintID, func(t *testing.T) {
			res := r.Replay(context.Background(), rec)
			if res.Status != StatusMatch {
				t.Errorf("Replay() = %+v, want match", res)
			}
			if res.Replayed != rec.Result {
				t.Errorf("Replayed = %s, want %s", res.Replayed, rec.Result)
			}
		})
	}
}

func TestReplayer_Mismatch(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(r *evidence.Record)
		wantStatus Status
		wantReason string
	}{
		{
			name:       "different result",
			mutate:     func(r *evidence.Record) { r.Result = evidence.ResultViolated },
			wantStatus: StatusMismatch,
			wantReason: "recorded violated, replayed pass",
		},
		{
			name: "tampered document",
			mutate: func(r *evidence.Record) {
				r.Document = []byte(strings.Replace(string(r.Document), "pending", "committed", 1))
			},
			wantStatus: StatusMismatch,
			wantReason: "document hash",
		},
		{
			name:       "invalid document",
			mutate:     func(r *evidence.Record) { r.Document = []byte(`{`) },
			wantStatus: StatusMismatch,
			wantReason: "stored document",
		},
		{
			name: "different error kind",
			mutate: func(r *evidence.Record) {
				r.Result = evidence.ResultError
				r.ErrorKind = "unknown_identifier"
				r.Expression = "saga.status && true"
			},
			wantStatus: StatusMismatch,
			wantReason: "error kind",
		},
		{
			name:       "document not stored",
			mutate:     func(r *evidence.Record) { r.Document = nil },
			wantStatus: StatusSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record(t, storage.NewMemoryStorage(), true, deadlineOutcome)[0]
			tt.mutate(rec)

			res := New(logging.Discard()).Replay(context.Background(), rec)
			if res.Status != tt.wantStatus {
				t.Fatalf("Status = %s, want %s (%s)", res.Status, tt.wantStatus, res.Reason)
			}
			if !strings.Contains(res.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want containing %q", res.Reason, tt.wantReason)
			}
		})
	}
}

func TestReplayer_ReplayWith(t *testing.T) {
	rec := record(t, storage.NewMemoryStorage(), false, bigOutcome)[0]
	r := New(logging.Discard())

	if res := r.Replay(context.Background(), rec); res.Status != StatusSkipped {
		t.Fatalf("Replay() of hash-only record = %s, want skipped", res.Status)
	}

	// Same document, different layout: the canonical hash still matches.
	doc, _ := value.DecodeJSON([]byte(`{"saga":{"total_amount":90071992547409930,"deadline":"2026-03-02T00:00:00Z","status":"pending"}}`))
	if res := r.ReplayWith(context.Background(), rec, doc); res.Status != StatusMatch {
		t.Errorf("ReplayWith() = %+v, want match", res)
	}

	other, _ := value.DecodeJSON([]byte(`{"saga":{}}`))
	if res := r.ReplayWith(context.Background(), rec, other); res.Status != StatusMismatch {
		t.Errorf("ReplayWith(other) = %s, want mismatch", res.Status)
	}
}

func TestReplayer_ReplayQuery(t *testing.T) {
	store := storage.NewMemoryStorage()
	record(t, store, true, deadlineOutcome, statusOutcome)
	record(t, store, false, bigOutcome)

	report, err := New(logging.Discard()).ReplayQuery(context.Background(), store, &evidence.Query{SchemaID: "payment-saga"})
	if err != nil {
		t.Fatalf("ReplayQuery() error = %v", err)
	}
	if report.Matched != 2 || report.Skipped != 1 || report.Mismatched != 0 {
		t.Errorf("report = matched %d, skipped %d, mismatched %d", report.Matched, report.Skipped, report.Mismatched)
	}
	if !report.OK() {
		t.Error("Expected OK report")
	}
}

func TestReplayer_LinksRecordedTrace(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := tracing.New(&config.TracingConfig{Enabled: true, Sampler: tracing.SamplerAlways},
		tracing.WithExporter(exporter), tracing.WithoutGlobal())
	if err != nil {
		t.Fatal(err)
	}
	defer tracer.Shutdown(context.Background())

	rec := record(t, storage.NewMemoryStorage(), true, deadlineOutcome)[0]
	New(logging.Discard(), WithTracer(tracer)).Replay(context.Background(), rec)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if got := spans[0].SpanContext.TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("replay span trace = %s, want the recorded trace", got)
	}
}

func TestReplayer_ExponentIntegers(t *testing.T) {
	doc, err := value.DecodeJSON([]byte(`{"x": 1e16, "y": 10000000000000000}`))
	if err != nil {
		t.Fatal(err)
	}
	rec := recorder.New(storage.NewMemoryStorage(), &recorder.Config{StoreDocuments: true}, logging.Discard())
	defer rec.Close()

	records, err := rec.Record(context.Background(), &recorder.Evaluation{
		EvaluationID:        "eval-exp",
		SchemaID:            "amounts",
		ContractVersion:     "1.0.0",
		EvaluationTimestamp: frozen,
		Document:            doc,
	}, []recorder.Outcome{
		{ConstraintID: "same-kind", Severity: "error", Expression: "type_of(x) == type_of(y)", Result: evidence.ResultPass},
		{ConstraintID: "x-bigint", Severity: "error", Expression: "type_of(x) == 'bigint'", Result: evidence.ResultPass},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	r := New(logging.Discard())
	for _, record := range records {
		if res := r.Replay(context.Background(), record); res.Status != StatusMatch {
			t.Errorf("Replay(%s) = %s (%s), want match", record.ConstraintID, res.Status, res.Reason)
		}
	}
}
