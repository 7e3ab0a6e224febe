package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the hex SHA-256 of record serialized with its keys in
// lexicographic order.  encoding/json writes map keys sorted at every
// nesting level, so two records with the same fields fingerprint the same
// however they were built.
func Fingerprint(record map[string]any) string {
	b, err := json.Marshal(record)
	if err != nil {
		// fmt also prints maps with sorted keys.
		b = []byte(fmt.Sprintf("%v", record))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
