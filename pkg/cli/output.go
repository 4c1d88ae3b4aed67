package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// OutputFormat names how a command prints its result.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
)

// ParseFormat checks s against the formats a command supports.
func ParseFormat(s string, allowed ...OutputFormat) (OutputFormat, error) {
	for _, f := range allowed {
		if OutputFormat(s) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (supported: %v)", s, allowed)
}

// Formatter writes a command result in one OutputFormat.
type Formatter interface {
	FormatTo(w io.Writer, data any) error
}

// Table is implemented by results that can be rendered as CSV.
type Table interface {
	Header() []string
	Rows() [][]string
}

// NewFormatter returns the formatter for format. Unknown formats print
// with %v.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return jsonFormatter{indent: true}
	case FormatCSV:
		return csvFormatter{}
	default:
		return textFormatter{}
	}
}

type textFormatter struct{}

func (textFormatter) FormatTo(w io.Writer, data any) error {
	_, err := fmt.Fprintln(w, data)
	return err
}

type jsonFormatter struct {
	indent bool
}

func (f jsonFormatter) FormatTo(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(data)
}

type csvFormatter struct{}

func (csvFormatter) FormatTo(w io.Writer, data any) error {
	table, ok := data.(Table)
	if !ok {
		return fmt.Errorf("CSV output not supported for %T", data)
	}

	cw := csv.NewWriter(w)
	if header := table.Header(); len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	// WriteAll flushes.
	if err := cw.WriteAll(table.Rows()); err != nil {
		return err
	}
	return cw.Error()
}
