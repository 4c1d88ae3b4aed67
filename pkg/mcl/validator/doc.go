// Package validator provides static validation for MCL constraints.
//
// The validator performs two kinds of validation:
//
// 1. Structural Validation: checks a constraint file's required keys, id
// naming and uniqueness, severities and reserved field names
//
// 2. Signature Checking: verifies, without evaluating anything, that every
// field an expression reads is declared in the constraint's type signature
// with a type compatible with how the expression uses it
//
// # Basic Usage
//
// Check a single expression:
//
//	sig := &validator.ConstraintTypeSignature{
//	    InputSchema: "saga",
//	    OutputType:  validator.TypeBoolean,
//	    FieldTypes: map[string]validator.ConstraintType{
//	        "steps":          validator.TypeArray,
//	        "steps[].amount": validator.TypeBigIntCoercible,
//	        "total_amount":   validator.TypeBigIntCoercible,
//	    },
//	}
//
//	err := validator.NewSignatureChecker().Check(sig, "bigint_sum(steps, 'amount') == total_amount")
//
// Validate a whole constraint file:
//
//	v := validator.NewValidator()
//	if err := v.Validate(spec); err != nil {
//	    if errList, ok := err.(*errors.ErrorList); ok {
//	        for _, e := range errList.Errors {
//	            fmt.Println(e.Error())
//	        }
//	    }
//	}
//
// # Field Paths
//
// Signature paths are dotted. Elements of an array field are addressed with
// "[]": inside links.every(l => l.budget != null), l.budget is looked up as
// "links[].budget". An element path that is not declared is treated as
// unknown as long as the array itself is declared.
//
// # Type Rules
//
// - bigint builtins take bigint or bigint_coercible fields and integer literals
// - temporal builtins take strings
// - .length applies to arrays and strings, .every to arrays
// - &&, || and ! take booleans
// - ordering compares numbers with numbers (bigint included) or strings with
// strings; two integer strings are rejected because they order as text
// - equality between types that can never be equal is rejected
//
// The checker is conservative. It may reject expressions that would evaluate
// fine; it never executes anything.
//
// # Validation Order
//
// Validate runs structural validation first and only parses and checks the
// expressions when the file is structurally sound. This prevents cascading
// errors.
package validator
