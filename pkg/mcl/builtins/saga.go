package builtins

import (
	"math/big"

	"mercator-hq/covenant/pkg/mcl/value"
)

// Sagas are objects shaped like
//
//	{total_amount, timeout_seconds, steps: [{sequence, amount, timeout_seconds}]}

func sagaAmountConserved(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "saga_amount_conserved"
	saga, steps, err := sagaSteps(fn, args[0])
	if err != nil {
		return nil, err
	}

	total, err := fieldBigInt(fn, saga, "total_amount")
	if err != nil {
		return nil, err
	}

	sum := new(big.Int)
	for _, step := range steps {
		amount, err := fieldBigInt(fn, step, "amount")
		if err != nil {
			return nil, err
		}
		sum.Add(sum, amount)
	}
	return boolResult(sum.Cmp(total) == 0)
}

// sagaStepsSequential requires sequence numbers 1, 2, 3, ... in array order.
func sagaStepsSequential(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "saga_steps_sequential"
	_, steps, err := sagaSteps(fn, args[0])
	if err != nil {
		return nil, err
	}

	for i, step := range steps {
		seq, err := fieldBigInt(fn, step, "sequence")
		if err != nil {
			return nil, err
		}
		if !seq.IsInt64() || seq.Int64() != int64(i+1) {
			return boolResult(false)
		}
	}
	return boolResult(true)
}

func sagaTimeoutValid(_ *Call, args []value.Value) (value.Value, error) {
	const fn = "saga_timeout_valid"
	saga, steps, err := sagaSteps(fn, args[0])
	if err != nil {
		return nil, err
	}

	limit, err := fieldNumber(fn, saga, "timeout_seconds")
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return boolResult(false)
	}

	total := 0.0
	for _, step := range steps {
		timeout, err := fieldNumber(fn, step, "timeout_seconds")
		if err != nil {
			return nil, err
		}
		if timeout <= 0 {
			return boolResult(false)
		}
		total += timeout
	}
	return boolResult(total <= limit)
}

func sagaSteps(fn string, v value.Value) (value.Object, []value.Object, error) {
	saga, err := argObject(fn, 0, v)
	if err != nil {
		return nil, nil, err
	}
	arr, err := fieldArray(fn, saga, "steps")
	if err != nil {
		return nil, nil, err
	}
	steps := make([]value.Object, len(arr))
	for i := range arr {
		step, err := elementObject(fn, arr, i)
		if err != nil {
			return nil, nil, err
		}
		steps[i] = step
	}
	return saga, steps, nil
}
