package errors

import (
	"fmt"
	"strings"
)

// SuggestFieldName suggests possible field names when an undeclared field is referenced.
// It uses Levenshtein distance to find similar field names.
func SuggestFieldName(unknown string, validFields []string) string {
	if len(validFields) == 0 {
		return ""
	}

	bestMatch, minDistance := closest(unknown, validFields)

	// Only suggest if the distance is reasonable (< 5 edits)
	if minDistance < 5 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	// If no close match, list a few declared fields
	if len(validFields) > 5 {
		return fmt.Sprintf("Declared fields include: %s, ...", strings.Join(validFields[:5], ", "))
	}
	return fmt.Sprintf("Declared fields: %s", strings.Join(validFields, ", "))
}

// SuggestFunctionName suggests a builtin when an unknown function is called.
func SuggestFunctionName(unknown string, builtins []string) string {
	if len(builtins) == 0 {
		return ""
	}

	bestMatch, minDistance := closest(unknown, builtins)
	if minDistance < 4 {
		return fmt.Sprintf("Did you mean '%s'?", bestMatch)
	}

	return "Only registered builtins can be called; run 'covenant builtins' for the list"
}

// SuggestOperator suggests valid operators for a constraint type.
func SuggestOperator(fieldType string) string {
	switch fieldType {
	case "string":
		return "Valid operators: ==, !=, <, >, <=, >=, == null, != null"
	case "number", "bigint", "bigint_coercible":
		return "Valid operators: ==, !=, <, >, <=, >=; use bigint_* builtins for exact arithmetic"
	case "boolean":
		return "Valid operators: ==, !=, &&, ||, !, =>"
	case "array":
		return "Use .length, .every(x => ...) or a builtin such as len() or unique_values()"
	default:
		return "Valid operators: ==, !=, <, >, <=, >=, &&, ||, !, =>"
	}
}

// SuggestMissingField suggests adding a required field.
func SuggestMissingField(fieldName string, exampleValue string) string {
	if exampleValue != "" {
		return fmt.Sprintf("Add '%s: %s' to the constraint", fieldName, exampleValue)
	}
	return fmt.Sprintf("Add '%s' field to the constraint", fieldName)
}

// closest returns the candidate with the smallest edit distance to s.
func closest(s string, candidates []string) (string, int) {
	minDistance := 1000
	var bestMatch string

	for _, candidate := range candidates {
		dist := levenshteinDistance(s, candidate)
		if dist < minDistance {
			minDistance = dist
			bestMatch = candidate
		}
	}

	return bestMatch, minDistance
}

// levenshteinDistance computes the Levenshtein distance between two strings.
// This is used for finding similar field/function names for suggestions.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}

	len1 := len(s1)
	len2 := len(s2)

	// Create distance matrix
	matrix := make([][]int, len1+1)
	for i := range matrix {
		matrix[i] = make([]int, len2+1)
	}

	// Initialize first column and row
	for i := 0; i <= len1; i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len2; j++ {
		matrix[0][j] = j
	}

	// Compute distances
	for i := 1; i <= len1; i++ {
		for j := 1; j <= len2; j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				matrix[i-1][j]+1,      // Deletion
				matrix[i][j-1]+1,      // Insertion
				matrix[i-1][j-1]+cost, // Substitution
			)
		}
	}

	return matrix[len1][len2]
}
