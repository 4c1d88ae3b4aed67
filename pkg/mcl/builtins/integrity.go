package builtins

import (
	"regexp"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// hashPattern is the content-hash format: "sha256:" and 64 lowercase hex digits.
var hashPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// IsHash reports whether s is a well-formed content hash.
func IsHash(s string) bool {
	return hashPattern.MatchString(s)
}

// executionCheckpointValid checks {sequence, state_hash, previous_checkpoint_hash}.
// The first checkpoint (sequence 0) has no predecessor; every later one links
// to a well-formed predecessor hash.
func executionCheckpointValid(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "execution_checkpoint_valid"
	cp, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	seq, err := fieldBigInt(fn, cp, "sequence")
	if err != nil {
		return nil, err
	}
	stateHash, err := fieldString(fn, cp, "state_hash")
	if err != nil {
		return nil, err
	}
	if seq.Sign() < 0 || !IsHash(stateHash) {
		return boolResult(false)
	}

	prev := cp.Field("previous_checkpoint_hash")
	if seq.Sign() == 0 {
		return boolResult(value.IsNullish(prev))
	}
	if value.IsNullish(prev) {
		return boolResult(false)
	}
	prevHash, err := fieldString(fn, cp, "previous_checkpoint_hash")
	if err != nil {
		return nil, err
	}
	return boolResult(IsHash(prevHash))
}

// auditTrailChainValid checks {genesis_hash, entries: [{entry_hash, previous_hash}]}.
func auditTrailChainValid(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "audit_trail_chain_valid"
	trail, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	genesis, err := fieldString(fn, trail, "genesis_hash")
	if err != nil {
		return nil, err
	}
	entries, err := fieldArray(fn, trail, "entries")
	if err != nil {
		return nil, err
	}
	if !IsHash(genesis) {
		return boolResult(false)
	}

	expected := genesis
	for i := range entries {
		entry, err := elementObject(fn, entries, i)
		if err != nil {
			return nil, err
		}
		prevHash, err := fieldString(fn, entry, "previous_hash")
		if err != nil {
			return nil, err
		}
		entryHash, err := fieldString(fn, entry, "entry_hash")
		if err != nil {
			return nil, err
		}
		if prevHash != expected || !IsHash(entryHash) {
			return boolResult(false)
		}
		expected = entryHash
	}
	return boolResult(true)
}

// noEmergentInIndividual rejects any element flagged emergent: true.
func noEmergentInIndividual(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "no_emergent_in_individual"
	arr, err := argArray(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	for i := range arr {
		el, err := elementObject(fn, arr, i)
		if err != nil {
			return nil, err
		}
		if el.Field("emergent") == value.Bool(true) {
			return boolResult(false)
		}
	}
	return boolResult(true)
}

func allEmergentHaveEvidence(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "all_emergent_have_evidence"
	arr, err := argArray(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	for i := range arr {
		el, err := elementObject(fn, arr, i)
		if err != nil {
			return nil, err
		}
		if el.Field("emergent") != value.Bool(true) {
			continue
		}
		evidence := el.Field("evidence")
		if value.IsNullish(evidence) {
			return boolResult(false)
		}
		items, ok := evidence.(value.Array)
		if !ok {
			return nil, mclErrors.TypeErrorf("%s: element %d field \"evidence\" must be an array, got %s", fn, i, describe(evidence))
		}
		if len(items) == 0 {
			return boolResult(false)
		}
	}
	return boolResult(true)
}
