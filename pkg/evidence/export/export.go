package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/covenant/pkg/evidence"
)

// StreamExporter is an exporter that can also consume a record stream.
type StreamExporter interface {
	evidence.Exporter
	ExportStream(ctx context.Context, recordsCh <-chan *evidence.Record, w io.Writer) error
}

// Formats lists the supported export formats.
var Formats = []string{"json", "csv"}

// New returns the exporter for format.
func New(format string, pretty bool) (StreamExporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, evidence.NewExportError(format, 0, fmt.Errorf("unsupported format %q (want json or csv)", format))
	}
}
