package builtins

import (
	"math/big"

	mclErrors "mercator-hq/covenant/pkg/mcl/errors"
	"mercator-hq/covenant/pkg/mcl/value"
)

// Delegation chains are arrays of links shaped like
//
//	{delegator, delegatee, timestamp, budget, authority_scope: [...]}
//
// and delegation trees are nested nodes {budget, authority_scope, children: [...]}.

func linksFormChain(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "links_form_chain"
	links, err := chainLinks(fn, args[0])
	if err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(links); i++ {
		delegatee, err := fieldString(fn, links[i], "delegatee")
		if err != nil {
			return nil, err
		}
		delegator, err := fieldString(fn, links[i+1], "delegator")
		if err != nil {
			return nil, err
		}
		if delegatee != delegator {
			return boolResult(false)
		}
	}
	return boolResult(true)
}

func linksTemporallyOrdered(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "links_temporally_ordered"
	links, err := chainLinks(fn, args[0])
	if err != nil {
		return nil, err
	}

	for i := 0; i+1 < len(links); i++ {
		a, err := fieldTime(fn, links[i], "timestamp")
		if err != nil {
			return nil, err
		}
		b, err := fieldTime(fn, links[i+1], "timestamp")
		if err != nil {
			return nil, err
		}
		if b.Before(a) {
			return boolResult(false)
		}
	}
	return boolResult(true)
}

// delegationBudgetConserved holds when no budget is negative and no link
// passes on more than it received.
func delegationBudgetConserved(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "delegation_budget_conserved"
	links, err := chainLinks(fn, args[0])
	if err != nil {
		return nil, err
	}

	var prev *big.Int
	for _, link := range links {
		budget, err := fieldBigInt(fn, link, "budget")
		if err != nil {
			return nil, err
		}
		if budget.Sign() < 0 {
			return boolResult(false)
		}
		if prev != nil && budget.Cmp(prev) > 0 {
			return boolResult(false)
		}
		prev = budget
	}
	return boolResult(true)
}

func allLinksSubsetAuthority(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "all_links_subset_authority"
	links, err := chainLinks(fn, args[0])
	if err != nil {
		return nil, err
	}

	var prev map[string]bool
	for _, link := range links {
		scope, err := fieldStringSet(fn, link, "authority_scope")
		if err != nil {
			return nil, err
		}
		if prev != nil && !isSubset(scope, prev) {
			return boolResult(false)
		}
		prev = scope
	}
	return boolResult(true)
}

// treeBudgetConserved walks the tree iteratively: at every node the children's
// budgets must sum to at most the node's own budget.
func treeBudgetConserved(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "tree_budget_conserved"
	root, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}

	ok, err := walkTree(fn, root, func(node value.Object, children []value.Object) (bool, error) {
		budget, err := fieldBigInt(fn, node, "budget")
		if err != nil {
			return false, err
		}
		if budget.Sign() < 0 {
			return false, nil
		}
		sum := new(big.Int)
		for _, child := range children {
			childBudget, err := fieldBigInt(fn, child, "budget")
			if err != nil {
				return false, err
			}
			sum.Add(sum, childBudget)
		}
		return sum.Cmp(budget) <= 0, nil
	})
	if err != nil {
		return nil, err
	}
	return boolResult(ok)
}

func treeAuthorityNarrowing(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "tree_authority_narrowing"
	root, err := argObject(fn, 0, args[0])
	if err != nil {
		return nil, err
	}

	ok, err := walkTree(fn, root, func(node value.Object, children []value.Object) (bool, error) {
		scope, err := fieldStringSet(fn, node, "authority_scope")
		if err != nil {
			return false, err
		}
		for _, child := range children {
			childScope, err := fieldStringSet(fn, child, "authority_scope")
			if err != nil {
				return false, err
			}
			if !isSubset(childScope, scope) {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return boolResult(ok)
}

// walkTree visits every node with its children until check returns false or
// an error. A missing or null "children" field means a leaf.
func walkTree(fn string, root value.Object, check func(node value.Object, children []value.Object) (bool, error)) (bool, error) {
	stack := []value.Object{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var children []value.Object
		if raw := node.Field("children"); !value.IsNullish(raw) {
			arr, ok := raw.(value.Array)
			if !ok {
				return false, mclErrors.TypeErrorf("%s: field \"children\" must be an array, got %s", fn, describe(raw))
			}
			children = make([]value.Object, len(arr))
			for i := range arr {
				child, err := elementObject(fn, arr, i)
				if err != nil {
					return false, err
				}
				children[i] = child
			}
		}

		ok, err := check(node, children)
		if err != nil || !ok {
			return ok, err
		}
		stack = append(stack, children...)
	}
	return true, nil
}

func chainLinks(fn string, v value.Value) ([]value.Object, error) {
	arr, err := argArray(fn, 0, v)
	if err != nil {
		return nil, err
	}
	links := make([]value.Object, len(arr))
	for i := range arr {
		link, err := elementObject(fn, arr, i)
		if err != nil {
			return nil, err
		}
		links[i] = link
	}
	return links, nil
}
