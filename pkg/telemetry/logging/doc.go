// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package wraps log/slog to provide:
//   - JSON, text and console output formats
//   - Redaction of tokens, API keys and passwords by key name and pattern
//   - Context fields (evaluation_id, schema_id, constraint_id, trace_id)
//     attached to every record logged with a context
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Redact: true,
//	})
//
//	ctx = logging.WithEvaluationID(ctx, id)
//	logger.Slog().InfoContext(ctx, "constraint violated", "constraint_id", "supply.conserved")
//
// Components accept a *slog.Logger and default to slog.Default(); pass
// logger.Slog() to them.
package logging
