package builtins

import (
	"fmt"
	"sort"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// Category groups builtins by purpose.
type Category string

const (
	CategoryArithmetic Category = "arithmetic"
	CategoryTemporal   Category = "temporal"
	CategoryStructural Category = "structural"
	CategoryDomain     Category = "domain"
)

// ParamKind describes what a builtin expects for one argument. The evaluator
// does not use it (each builtin checks its own arguments); the static
// signature checker does.
type ParamKind string

const (
	ParamAny       ParamKind = "any"
	ParamBigInt    ParamKind = "bigint"    // integer-coercible value
	ParamTimestamp ParamKind = "timestamp" // ISO-8601 date-time string
	ParamNumber    ParamKind = "number"
	ParamString    ParamKind = "string"
	ParamPath      ParamKind = "path" // dotted field path written as a string
	ParamArray     ParamKind = "array"
	ParamObject    ParamKind = "object"
)

// ResultKind is the static return type of a builtin.
type ResultKind string

const (
	ResultBool   ResultKind = "boolean"
	ResultBigInt ResultKind = "bigint"
	ResultNumber ResultKind = "number"
	ResultString ResultKind = "string"
	ResultAny    ResultKind = "unknown"
)

// Call carries the per-evaluation inputs a builtin may consult. It is built
// by the evaluator for each evaluation and never shared across evaluations.
type Call struct {
	// Now returns the value of now(): the frozen evaluation timestamp when one
	// was supplied, otherwise the wall clock.
	Now func() string

	// Current is the root document being evaluated.
	Current value.Value

	// Previous is the previous-state snapshot, or value.Absent.
	Previous value.Value
}

// Func implements a builtin over already-evaluated arguments.
type Func func(call *Call, args []value.Value) (value.Value, error)

// Builtin is one entry of the closed registry.
type Builtin struct {
	Name        string
	Category    Category
	MinArgs     int
	MaxArgs     int
	Params      []ParamKind // len(Params) == MaxArgs
	Returns     ResultKind
	Description string
	fn          Func
}

// Invoke checks arity and runs the builtin.
func (b *Builtin) Invoke(call *Call, args []value.Value) (value.Value, error) {
	if err := b.CheckArity(len(args)); err != nil {
		return nil, err
	}
	return b.fn(call, args)
}

// CheckArity returns a parse error when n arguments are not accepted.
func (b *Builtin) CheckArity(n int) error {
	if n >= b.MinArgs && n <= b.MaxArgs {
		return nil
	}
	want := fmt.Sprintf("%d", b.MinArgs)
	if b.MaxArgs != b.MinArgs {
		want = fmt.Sprintf("%d to %d", b.MinArgs, b.MaxArgs)
	}
	return mclErrors.New(mclErrors.ErrorTypeParse,
		"Function %s expects %s argument(s), got %d", b.Name, want, n)
}

// Param returns the expected kind of the i-th argument.
func (b *Builtin) Param(i int) ParamKind {
	if i < len(b.Params) {
		return b.Params[i]
	}
	return ParamAny
}

func def(name string, cat Category, minArgs int, returns ResultKind, desc string, fn Func, params ...ParamKind) *Builtin {
	return &Builtin{
		Name:        name,
		Category:    cat,
		MinArgs:     minArgs,
		MaxArgs:     len(params),
		Params:      params,
		Returns:     returns,
		Description: desc,
		fn:          fn,
	}
}

// canonical is the ordered builtin table. Entries are only ever appended:
// removing or renaming one is a breaking change to the expression grammar.
var canonical = []*Builtin{
	// Arithmetic
	def("bigint_sum", CategoryArithmetic, 1, ResultBigInt, "Exact sum of array elements (or of element[field])", bigintSum, ParamArray, ParamString),
	def("bigint_add", CategoryArithmetic, 2, ResultBigInt, "Exact a + b", bigintAdd, ParamBigInt, ParamBigInt),
	def("bigint_sub", CategoryArithmetic, 2, ResultBigInt, "Exact a - b", bigintSub, ParamBigInt, ParamBigInt),
	def("bigint_gte", CategoryArithmetic, 2, ResultBool, "Exact a >= b", bigintCompare("bigint_gte", func(c int) bool { return c >= 0 }), ParamBigInt, ParamBigInt),
	def("bigint_gt", CategoryArithmetic, 2, ResultBool, "Exact a > b", bigintCompare("bigint_gt", func(c int) bool { return c > 0 }), ParamBigInt, ParamBigInt),
	def("bigint_eq", CategoryArithmetic, 2, ResultBool, "Exact a == b", bigintCompare("bigint_eq", func(c int) bool { return c == 0 }), ParamBigInt, ParamBigInt),
	def("eq", CategoryArithmetic, 2, ResultBool, "Strict deep equality without coercion", strictEqual, ParamAny, ParamAny),

	// Temporal
	def("now", CategoryTemporal, 0, ResultString, "Frozen evaluation timestamp or the wall clock", now),
	def("is_after", CategoryTemporal, 2, ResultBool, "a is strictly after b", isAfter, ParamTimestamp, ParamTimestamp),
	def("is_before", CategoryTemporal, 2, ResultBool, "a is strictly before b", isBefore, ParamTimestamp, ParamTimestamp),
	def("is_between", CategoryTemporal, 3, ResultBool, "start <= t <= end", isBetween, ParamTimestamp, ParamTimestamp, ParamTimestamp),
	def("is_within", CategoryTemporal, 3, ResultBool, "|a - b| <= seconds", isWithin, ParamTimestamp, ParamTimestamp, ParamNumber),
	def("is_stale", CategoryTemporal, 3, ResultBool, "reference - t > max_age_seconds", isStale, ParamTimestamp, ParamNumber, ParamTimestamp),

	// Structural / introspection
	def("len", CategoryStructural, 1, ResultNumber, "Length of an array, string or object", length, ParamAny),
	def("type_of", CategoryStructural, 1, ResultString, "Runtime kind of a value", typeOf, ParamAny),
	def("is_bigint_coercible", CategoryStructural, 1, ResultBool, "Whether a value converts to an exact integer", isBigIntCoercible, ParamAny),
	def("object_keys_subset", CategoryStructural, 2, ResultBool, "Every key of obj appears in allowed", objectKeysSubset, ParamObject, ParamArray),
	def("unique_values", CategoryStructural, 1, ResultBool, "No duplicate elements (or element[field] values)", uniqueValues, ParamArray, ParamString),
	def("changed", CategoryStructural, 1, ResultBool, "Value at path differs from the previous snapshot", changed, ParamPath),
	def("previous", CategoryStructural, 1, ResultAny, "Value at path in the previous snapshot", previous, ParamPath),
	def("delta", CategoryStructural, 1, ResultBigInt, "Exact current - previous value at path", delta, ParamPath),

	// Domain conservation / structural predicates
	def("links_form_chain", CategoryDomain, 1, ResultBool, "Each link's delegatee is the next link's delegator", linksFormChain, ParamArray),
	def("links_temporally_ordered", CategoryDomain, 1, ResultBool, "Link timestamps are non-decreasing", linksTemporallyOrdered, ParamArray),
	def("delegation_budget_conserved", CategoryDomain, 1, ResultBool, "No link delegates more budget than it received", delegationBudgetConserved, ParamArray),
	def("all_links_subset_authority", CategoryDomain, 1, ResultBool, "Each link's authority scope narrows the previous one", allLinksSubsetAuthority, ParamArray),
	def("tree_budget_conserved", CategoryDomain, 1, ResultBool, "Children budgets sum to at most the parent budget", treeBudgetConserved, ParamObject),
	def("tree_authority_narrowing", CategoryDomain, 1, ResultBool, "Child authority scopes are subsets of the parent", treeAuthorityNarrowing, ParamObject),
	def("saga_amount_conserved", CategoryDomain, 1, ResultBool, "Step amounts sum to the saga total", sagaAmountConserved, ParamObject),
	def("saga_steps_sequential", CategoryDomain, 1, ResultBool, "Step sequence numbers are consecutive from 1", sagaStepsSequential, ParamObject),
	def("saga_timeout_valid", CategoryDomain, 1, ResultBool, "Step timeouts are positive and fit the saga timeout", sagaTimeoutValid, ParamObject),
	def("outcome_consensus_valid", CategoryDomain, 1, ResultBool, "Distinct voters and agreeing share meets the threshold", outcomeConsensusValid, ParamObject),
	def("monetary_policy_solvent", CategoryDomain, 1, ResultBool, "Reserves cover the outstanding supply", monetaryPolicySolvent, ParamObject),
	def("permission_boundary_active", CategoryDomain, 2, ResultBool, "Boundary is in effect and unrevoked at a timestamp", permissionBoundaryActive, ParamObject, ParamTimestamp),
	def("proposal_quorum_met", CategoryDomain, 1, ResultBool, "Cast vote weight reaches the quorum", proposalQuorumMet, ParamObject),
	def("proposal_weights_normalized", CategoryDomain, 1, ResultBool, "Option weights sum to 1.0 within 0.001", proposalWeightsNormalized, ParamObject),
	def("constraint_lifecycle_valid", CategoryDomain, 1, ResultBool, "Lifecycle status has its timestamps in order", constraintLifecycleValid, ParamObject),
	def("proposal_execution_valid", CategoryDomain, 1, ResultBool, "Execution follows ratification", proposalExecutionValid, ParamObject),
	def("model_routing_eligible", CategoryDomain, 2, ResultBool, "Model is active, capable and large enough for a request", modelRoutingEligible, ParamObject, ParamObject),
	def("basket_weights_normalized", CategoryDomain, 1, ResultBool, "Component weights sum to 1.0 within 0.001", basketWeightsNormalized, ParamObject),
	def("execution_checkpoint_valid", CategoryDomain, 1, ResultBool, "Checkpoint hashes and linkage are well formed", executionCheckpointValid, ParamObject),
	def("audit_trail_chain_valid", CategoryDomain, 1, ResultBool, "Entries link by previous_hash to the genesis hash", auditTrailChainValid, ParamObject),
	def("no_emergent_in_individual", CategoryDomain, 1, ResultBool, "No element is marked emergent", noEmergentInIndividual, ParamArray),
	def("all_emergent_have_evidence", CategoryDomain, 1, ResultBool, "Every emergent element cites evidence", allEmergentHaveEvidence, ParamArray),
}

// keywords are reserved words of the grammar that are not builtins.
var keywords = []string{"true", "false", "null", "every", "length"}

var byName = func() map[string]*Builtin {
	m := make(map[string]*Builtin, len(canonical))
	for _, b := range canonical {
		if _, dup := m[b.Name]; dup {
			panic("duplicate builtin " + b.Name)
		}
		if len(b.Params) < b.MinArgs {
			panic("builtin " + b.Name + " declares fewer params than MinArgs")
		}
		m[b.Name] = b
	}
	return m
}()

// Lookup returns the builtin with the given name.
func Lookup(name string) (*Builtin, bool) {
	b, ok := byName[name]
	return b, ok
}

// Names returns the canonical ordered list of builtin names.
func Names() []string {
	names := make([]string, len(canonical))
	for i, b := range canonical {
		names[i] = b.Name
	}
	return names
}

// All returns the registry entries in canonical order.
func All() []*Builtin {
	out := make([]*Builtin, len(canonical))
	copy(out, canonical)
	return out
}

// Keywords returns the reserved words of the grammar.
func Keywords() []string {
	out := make([]string, len(keywords))
	copy(out, keywords)
	return out
}

// ReservedNames returns the sorted union of builtin names and keywords.
// Schema field names must not collide with any of them.
func ReservedNames() []string {
	out := append(Names(), keywords...)
	sort.Strings(out)
	return out
}

// IsReserved reports whether name is a builtin or keyword.
func IsReserved(name string) bool {
	if _, ok := byName[name]; ok {
		return true
	}
	for _, kw := range keywords {
		if kw == name {
			return true
		}
	}
	return false
}
