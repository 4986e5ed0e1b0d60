package history

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is the content hash used as the idempotence key of the history log.
func Hash(page []byte) string {
	sum := sha256.Sum256(page)
	return hex.EncodeToString(sum[:])
}
