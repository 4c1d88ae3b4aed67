package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/covenant/pkg/cli"
	"mercator-hq/covenant/pkg/constraint"
	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/validator"
)

var lintFlags struct {
	file   string
	dir    string
	strict bool
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate constraint file structure and syntax",
	Long: `Validate constraint files for structural and syntax errors.

The lint command loads constraint files and checks:
  - YAML/JSON syntax
  - File structure (schema_id, contract_version, unique constraint ids)
  - Expression syntax and builtin arity

Type signatures are not checked; use "covenant check" for that.

Examples:
  # Lint single file
  covenant lint --file constraints/saga.yaml

  # Lint directory
  covenant lint --dir constraints/

  # JSON output for CI/CD
  covenant lint --dir constraints/ --format json`,
	RunE: lintConstraints,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate constraint files including type signatures",
	Long: `Run every static check on constraint files: the lint checks plus the
type signature check of each constraint that declares one.

Examples:
  covenant check --file constraints/saga.yaml

  # Fail when a constraint has no type signature
  covenant check --dir constraints/ --strict`,
	RunE: checkConstraints,
}

func init() {
	rootCmd.AddCommand(lintCmd, checkCmd)

	for _, c := range []*cobra.Command{lintCmd, checkCmd} {
		c.Flags().StringVarP(&lintFlags.file, "file", "f", "", "constraint file to validate")
		c.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of constraint files")
		c.Flags().BoolVar(&lintFlags.strict, "strict", false, "treat warnings as errors")
		c.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
	}
}

// ValidationResult represents the validation result for a single file.
type ValidationResult struct {
	File     string            `json:"file"`
	SchemaID string            `json:"schema_id,omitempty"`
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors,omitempty"`
	Warnings []ValidationError `json:"warnings,omitempty"`
}

// ValidationError represents a single validation error or warning.
type ValidationError struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

func lintConstraints(cmd *cobra.Command, args []string) error {
	return validateConstraintFiles(cmd, "lint", false)
}

func checkConstraints(cmd *cobra.Command, args []string) error {
	return validateConstraintFiles(cmd, "check", true)
}

func validateConstraintFiles(cmd *cobra.Command, name string, signatures bool) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}
	format, err := cli.ParseFormat(lintFlags.format, cli.FormatText, cli.FormatJSON)
	if err != nil {
		return err
	}

	loader := constraint.NewLoader(nil)
	var results []ValidationResult
	for _, path := range []string{lintFlags.file, lintFlags.dir} {
		if path == "" {
			continue
		}
		files, err := loader.Load(path)
		for _, f := range files {
			results = append(results, validateFile(f, signatures))
		}
		results = append(results, loadFailures(path, err)...)
	}
	if len(results) == 0 {
		return fmt.Errorf("no constraint files found")
	}

	out := outWriter(cmd)
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(out, results); err != nil {
			return err
		}
	} else {
		printValidation(out, results, lintFlags.strict)
	}

	failed := 0
	for _, r := range results {
		if !r.Valid || (lintFlags.strict && len(r.Warnings) > 0) {
			failed++
		}
	}
	if failed > 0 {
		return cli.NewCommandError(name, fmt.Errorf("%d of %d file(s) failed validation", failed, len(results)))
	}
	return nil
}

func validateFile(f *constraint.File, signatures bool) ValidationResult {
	result := ValidationResult{File: f.Name(), SchemaID: f.SchemaID, Valid: true}

	spec := f.Spec()
	if !signatures {
		for i := range spec.Entries {
			spec.Entries[i].Signature = nil
		}
	}
	if err := validator.NewValidator().Validate(spec); err != nil {
		result.Valid = false
		result.Errors = toValidationErrors(err)
	}

	if signatures {
		for _, c := range f.Constraints {
			if c.TypeSignature == nil {
				result.Warnings = append(result.Warnings, ValidationError{
					Message: fmt.Sprintf("Constraint %q has no type_signature; it was not type checked", c.ID),
				})
			}
		}
	}
	return result
}

// loadFailures turns loader errors into per-file results.
func loadFailures(path string, err error) []ValidationResult {
	if err == nil {
		return nil
	}
	var list *constraint.ErrorList
	errs := []error{err}
	if errors.As(err, &list) {
		errs = list.Errors
	}

	results := make([]ValidationResult, 0, len(errs))
	for _, e := range errs {
		r := ValidationResult{File: path, Valid: false}
		var loadErr *constraint.LoadError
		var parseErr *constraint.ParseError
		switch {
		case errors.As(e, &parseErr):
			r.File = parseErr.FilePath
			r.Errors = []ValidationError{{Line: parseErr.Line, Message: parseErr.Message, Type: "syntax"}}
		case errors.As(e, &loadErr):
			r.File = loadErr.FilePath
			r.Errors = []ValidationError{{Message: e.Error(), Type: string(mclErrors.ErrorTypeIO)}}
		default:
			r.Errors = toValidationErrors(e)
		}
		results = append(results, r)
	}
	return results
}

func toValidationErrors(err error) []ValidationError {
	var list *mclErrors.ErrorList
	if errors.As(err, &list) {
		out := make([]ValidationError, 0, len(list.Errors))
		for _, e := range list.Errors {
			out = append(out, ValidationError{Column: e.Position.Column, Message: e.Message, Type: string(e.Type)})
		}
		return out
	}
	var single *mclErrors.Error
	if errors.As(err, &single) {
		return []ValidationError{{Column: single.Position.Column, Message: single.Message, Type: string(single.Type)}}
	}
	return []ValidationError{{Message: err.Error()}}
}

func printValidation(out io.Writer, results []ValidationResult, strict bool) {
	totalErrors, totalWarnings := 0, 0

	for _, result := range results {
		fmt.Fprintf(out, "Validating %s...\n", result.File)

		if len(result.Errors) == 0 && len(result.Warnings) == 0 {
			fmt.Fprintln(out, "✓ Valid")
		}
		for _, e := range result.Errors {
			fmt.Fprintf(out, "✗ Error: %s", e.Message)
			if e.Line > 0 {
				fmt.Fprintf(out, " (line %d)", e.Line)
			} else if e.Column > 0 {
				fmt.Fprintf(out, " (column %d)", e.Column)
			}
			if e.Type != "" {
				fmt.Fprintf(out, " [%s]", e.Type)
			}
			fmt.Fprintln(out)
			totalErrors++
		}
		for _, w := range result.Warnings {
			fmt.Fprintf(out, "⚠  Warning: %s\n", w.Message)
			totalWarnings++
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  %d error(s), %d warning(s)\n", totalErrors, totalWarnings)
	if strict && totalWarnings > 0 {
		fmt.Fprintln(out, "  Strict mode enabled: treating warnings as errors")
	}
}
