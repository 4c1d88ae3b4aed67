package builtins

import (
	"math"
	"time"

	"mercator-hq/covenant/pkg/mcl/value"
)

// weightTolerance is how far a weight vector may drift from 1.0.
const weightTolerance = 0.001

// outcomeConsensusValid checks {votes: [{voter, value}], consensus_value, threshold}.
// Votes must be non-empty with distinct voters, and the share of votes equal
// to consensus_value must reach threshold.
func outcomeConsensusValid(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "outcome_consensus_valid"
	outcome, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	votes, err := fieldArray(fn, outcome, "votes")
	if err != nil {
		return nil, err
	}
	threshold, err := fieldNumber(fn, outcome, "threshold")
	if err != nil {
		return nil, err
	}
	if len(votes) == 0 || threshold <= 0 || threshold > 1 {
		return boolResult(false)
	}

	consensus := outcome.Field("consensus_value")
	voters := make(map[string]bool, len(votes))
	agreeing := 0
	for i := range votes {
		vote, err := elementObject(fn, votes, i)
		if err != nil {
			return nil, err
		}
		voter, err := fieldString(fn, vote, "voter")
		if err != nil {
			return nil, err
		}
		if voters[voter] {
			return boolResult(false)
		}
		voters[voter] = true
		if value.Equal(vote.Field("value"), consensus) {
			agreeing++
		}
	}
	return boolResult(float64(agreeing)/float64(len(votes)) >= threshold)
}

func monetaryPolicySolvent(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "monetary_policy_solvent"
	policy, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	reserves, err := fieldBigInt(fn, policy, "reserves")
	if err != nil {
		return nil, err
	}
	supply, err := fieldBigInt(fn, policy, "supply")
	if err != nil {
		return nil, err
	}
	if reserves.Sign() < 0 || supply.Sign() < 0 {
		return boolResult(false)
	}
	return boolResult(reserves.Cmp(supply) >= 0)
}

// permissionBoundaryActive holds when effective_at <= t, t < expires_at if an
// expiry is set, and the boundary has not been revoked at or before t.
func permissionBoundaryActive(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "permission_boundary_active"
	boundary, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	at, err := argTime(fn, 1, args[1])
	if err != nil {
		return nil, err
	}

	effective, err := fieldTime(fn, boundary, "effective_at")
	if err != nil {
		return nil, err
	}
	if at.Before(effective) {
		return boolResult(false)
	}

	expires, ok, err := optionalTime(fn, boundary, "expires_at")
	if err != nil {
		return nil, err
	}
	if ok && !at.Before(expires) {
		return boolResult(false)
	}

	revoked, ok, err := optionalTime(fn, boundary, "revoked_at")
	if err != nil {
		return nil, err
	}
	if ok && !at.Before(revoked) {
		return boolResult(false)
	}
	return boolResult(true)
}

// proposalQuorumMet checks {votes: [{weight}], quorum, total_weight}.
func proposalQuorumMet(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "proposal_quorum_met"
	proposal, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	quorum, err := fieldNumber(fn, proposal, "quorum")
	if err != nil {
		return nil, err
	}
	total, err := fieldNumber(fn, proposal, "total_weight")
	if err != nil {
		return nil, err
	}
	if quorum < 0 || quorum > 1 || total <= 0 {
		return boolResult(false)
	}

	cast, err := sumWeights(fn, proposal, "votes")
	if err != nil {
		return nil, err
	}
	if cast < 0 {
		return boolResult(false)
	}
	return boolResult(cast >= quorum*total)
}

func proposalWeightsNormalized(_ *Call, args []value.Value) (value.Value, error) {
	return weightsNormalized("proposal_weights_normalized", args[0], "options")
}

func basketWeightsNormalized(_ *Call, args []value.Value) (value.Value, error) {
	return weightsNormalized("basket_weights_normalized", args[0], "components")
}

// weightsNormalized requires a non-empty list of non-negative weights that
// sum to 1.0 within weightTolerance.
func weightsNormalized(fn string, v value.Value, key string) (value.Value, error) {
	obj, err := argObject(fn, 0, v)
	if err != nil {
		return nil, err
	}
	arr, err := fieldArray(fn, obj, key)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return boolResult(false)
	}
	sum, err := sumWeights(fn, obj, key)
	if err != nil {
		return nil, err
	}
	if sum < 0 {
		return boolResult(false)
	}
	return boolResult(math.Abs(sum-1) <= weightTolerance)
}

// sumWeights adds obj[key][].weight. A negative weight makes the sum -1.
func sumWeights(fn string, obj value.Object, key string) (float64, error) {
	arr, err := fieldArray(fn, obj, key)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	negative := false
	for i := range arr {
		el, err := elementObject(fn, arr, i)
		if err != nil {
			return 0, err
		}
		w, err := fieldNumber(fn, el, "weight")
		if err != nil {
			return 0, err
		}
		if w < 0 {
			negative = true
		}
		sum += w
	}
	if negative {
		return -1, nil
	}
	return sum, nil
}

// lifecycleStages lists statuses in order with the timestamp each one sets.
var lifecycleStages = []struct {
	status string
	field  string
}{
	{"draft", ""},
	{"proposed", "proposed_at"},
	{"ratified", "ratified_at"},
	{"active", "activated_at"},
	{"deprecated", "deprecated_at"},
	{"retired", "retired_at"},
}

// constraintLifecycleValid requires a known status, the timestamp of every
// stage reached, none of the stages not yet reached, and stage timestamps in
// order.
func constraintLifecycleValid(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "constraint_lifecycle_valid"
	c, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	status, err := fieldString(fn, c, "status")
	if err != nil {
		return nil, err
	}

	reached := -1
	for i, stage := range lifecycleStages {
		if stage.status == status {
			reached = i
			break
		}
	}
	if reached < 0 {
		return boolResult(false)
	}

	var last time.Time
	for i, stage := range lifecycleStages {
		if stage.field == "" {
			continue
		}
		t, present, err := optionalTime(fn, c, stage.field)
		if err != nil {
			return nil, err
		}
		if present != (i <= reached) {
			return boolResult(false)
		}
		if !present {
			continue
		}
		if t.Before(last) {
			return boolResult(false)
		}
		last = t
	}
	return boolResult(true)
}

// proposalExecutionValid: an executed proposal was ratified first; any other
// proposal has no execution timestamp.
func proposalExecutionValid(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "proposal_execution_valid"
	p, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	status, err := fieldString(fn, p, "status")
	if err != nil {
		return nil, err
	}
	executed, hasExecuted, err := optionalTime(fn, p, "executed_at")
	if err != nil {
		return nil, err
	}

	if status != "executed" {
		return boolResult(!hasExecuted)
	}

	ratified, hasRatified, err := optionalTime(fn, p, "ratified_at")
	if err != nil {
		return nil, err
	}
	if !hasRatified || !hasExecuted {
		return boolResult(false)
	}
	return boolResult(!executed.Before(ratified))
}

// modelRoutingEligible checks that model is active, covers every capability
// the request requires, and has a context window large enough for it.
func modelRoutingEligible(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "model_routing_eligible"
	model, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}
	request, err := argObject(fn, 1, args[1])
	if err != nil {
		return nil, err
	}

	status, err := fieldString(fn, model, "status")
	if err != nil {
		return nil, err
	}
	if status != "active" {
		return boolResult(false)
	}

	if !value.IsNullish(request.Field("required_capabilities")) {
		required, err := fieldStringSet(fn, request, "required_capabilities")
		if err != nil {
			return nil, err
		}
		capabilities, err := fieldStringSet(fn, model, "capabilities")
		if err != nil {
			return nil, err
		}
		if !isSubset(required, capabilities) {
			return boolResult(false)
		}
	}

	if !value.IsNullish(request.Field("context_tokens")) {
		tokens, err := fieldBigInt(fn, request, "context_tokens")
		if err != nil {
			return nil, err
		}
		limit, err := fieldBigInt(fn, model, "max_context_tokens")
		if err != nil {
			return nil, err
		}
		if tokens.Cmp(limit) > 0 {
			return boolResult(false)
		}
	}
	return boolResult(true)
}
