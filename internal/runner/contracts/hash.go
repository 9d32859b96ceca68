package contracts

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// hashDigestLen mirrors the reference implementation's hash_output helper,
// which truncates a content hash to 16 hex characters to keep event lines
// compact.
const hashDigestLen = 16

// HashBytes returns a truncated blake3 hex digest of data, suitable for the
// inputs_hash/outputs_hash event fields.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashDigestLen]
}

// HashString is a convenience wrapper over HashBytes for string inputs.
func HashString(s string) string {
	return HashBytes([]byte(s))
}
