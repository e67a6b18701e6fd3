package guardian

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent computes the content-addressed hash recorded for a document
// at storage time. The same function must be used when re-presenting the
// document so the integrity check compares like with like.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
