// Covenant evaluates MCL constraint files against JSON documents and keeps
// replayable evidence of every decision.
//
// Usage:
//
//	# Evaluate a single expression
//	covenant eval --expr 'bigint_gt(saga.total_amount, 0)' --data saga.json
//
//	# Evaluate a constraint file against a document
//	covenant run --file constraints/saga.yaml --data saga.json --record
//
//	# Check constraint files (structure and type signatures)
//	covenant check --file constraints/
//
//	# Re-verify recorded evidence
//	covenant replay --schema payment-saga --since 7d
//
// Exit codes: 0 on success, 1 when a constraint fails or a replay
// mismatches, 2 on any other error.
package main

func main() {
	Execute()
}
