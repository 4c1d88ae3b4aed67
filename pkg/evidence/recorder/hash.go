package recorder

import (
	"crypto/sha256"
	"encoding/hex"

	"mercator-hq/covenant/pkg/mcl/value"
)

// HashContent returns the hex SHA-256 of content, or "" for empty content.
func HashContent(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// HashString hashes a string.
func HashString(content string) string {
	return HashContent([]byte(content))
}

// HashDocument hashes the canonical encoding of doc, so documents that
// differ only in key order or whitespace hash the same.
func HashDocument(doc value.Value) string {
	return HashString(value.Canonical(doc))
}
