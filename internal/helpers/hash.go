package helpers

import (
	"encoding/hex"

	"github.com/zeebo/xxh3"
)

// Returns a stable 128-bit hash of the text as 32 lowercase hex digits. This
// is used both for source ids (which must stay identical for the lifetime of
// a compilation) and for parse cache keys.
func HashString(text string) string {
	sum := xxh3.HashString128(text).Bytes()
	return hex.EncodeToString(sum[:])
}
