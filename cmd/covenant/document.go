package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/mcl/builtins"
	"mercator-hq/covenant/pkg/mcl/eval"
	"mercator-hq/covenant/pkg/mcl/value"
)

// readDocument decodes a JSON document from path, or from stdin for "-".
func readDocument(cmd *cobra.Command, path string) (value.Value, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		var in io.Reader = os.Stdin
		if cmd != nil {
			in = cmd.InOrStdin()
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := value.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON document %s: %w", path, err)
	}
	return doc, nil
}

// evalContext builds the evaluation context from the --at and --previous
// flags. An empty at leaves now() to be frozen at evaluation start.
func evalContext(cmd *cobra.Command, at, previous string) (*eval.Context, error) {
	ctx := &eval.Context{}
	if at != "" {
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("invalid --at timestamp %q: must be RFC 3339", at)
		}
		ctx.EvaluationTimestamp = builtins.FormatTimestamp(t)
	}
	if previous != "" {
		prev, err := readDocument(cmd, previous)
		if err != nil {
			return nil, fmt.Errorf("previous state: %w", err)
		}
		ctx.Previous = prev
	}
	return ctx, nil
}
