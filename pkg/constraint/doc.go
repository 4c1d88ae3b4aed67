// Package constraint defines the constraint file format and loads it from
// disk.
//
// A constraint file binds a set of MCL expressions to one document schema:
//
//	schema_id: delegation-chain
//	contract_version: 1.0.0
//	expression_version: "1.0"
//	constraints:
//	  - id: budget-conserved
//	    expression: sum(links, "budget") <= root.budget
//	    severity: error
//	    fields: [links, root.budget]
//	    message: Delegated budgets exceed the root budget
//	    type_signature:
//	      input_schema: delegation-chain
//	      output_type: boolean
//	      field_types:
//	        links: array
//	        links[].budget: bigint
//	        root.budget: bigint
//
// Files are YAML (.yaml, .yml) or JSON (.json). The loader checks size,
// encoding and shape; Validate runs the structural and signature checks of
// the mcl/validator package.
package constraint
