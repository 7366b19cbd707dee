// Package fileid derives stable identifiers for files dropped into a watched inbox.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// SourceID returns a stable source identifier for the given path. The same
// cleaned path always yields the same ID, so repeated summaries of one file
// can be grouped in history.
func SourceID(path string) string {
	normalized := filepath.Clean(path)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// IsSourceID reports whether s was produced by SourceID.
func IsSourceID(s string) bool {
	return len(s) == len(prefix)+sha256.Size*2 && s[:len(prefix)] == prefix
}
