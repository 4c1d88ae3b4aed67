package ast

import "fmt"

// Position is the location of a node within the expression text.
// It enables precise error reporting with a caret under the offending column.
type Position struct {
	Offset int // Byte offset (0-based)
	Column int // Column number (1-based, counted in runes)
}

// String returns a human-readable representation of the position.
// Format: "column N"
func (p Position) String() string {
	if !p.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("column %d", p.Column)
}

// IsValid returns true if the position carries column information.
// Nodes built by hand (outside the parser) have the zero Position.
func (p Position) IsValid() bool {
	return p.Column > 0
}
