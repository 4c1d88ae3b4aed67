package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"time"

	"mercator-hq/covenant/pkg/evidence"
)

// CSVExporter writes one row per record. The document columns are left
// out; document_hash identifies the input.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Header is the CSV column order.
var Header = []string{
	"id", "evaluation_id", "recorded_at",
	"schema_id", "contract_version", "constraint_id", "severity",
	"result", "error_kind", "error_message",
	"evaluation_timestamp", "document_hash", "expression", "trace_context",
}

// Export writes records to w.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		row, err := recordToRow(record)
		if err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(row); err != nil {
			return evidence.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from recordsCh, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			row, err := recordToRow(record)
			if err != nil {
				return evidence.NewExportError("csv", recordCount, err)
			}
			if err := writer.Write(row); err != nil {
				return evidence.NewExportError("csv", recordCount, err)
			}
			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func recordToRow(record *evidence.Record) ([]string, error) {
	traceContext := ""
	if len(record.TraceContext) > 0 {
		b, err := json.Marshal(record.TraceContext)
		if err != nil {
			return nil, err
		}
		traceContext = string(b)
	}

	return []string{
		record.ID,
		record.EvaluationID,
		record.RecordedAt.UTC().Format(time.RFC3339Nano),
		record.SchemaID,
		record.ContractVersion,
		record.ConstraintID,
		record.Severity,
		string(record.Result),
		record.ErrorKind,
		record.ErrorMessage,
		record.EvaluationTimestamp,
		record.DocumentHash,
		record.Expression,
		traceContext,
	}, nil
}
