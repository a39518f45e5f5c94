// Package privacy anonymizes network origins before they touch storage.
package privacy

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Unknown is stored when no usable origin was presented.
const Unknown = "unknown"

// Hasher produces salted one-way hashes of raw network origins. The raw
// value is hashed with a keyed blake2b so identical origins remain
// correlatable within one deployment but cannot be reversed or compared
// across deployments.
type Hasher struct {
	salt []byte
}

func NewHasher(salt string) *Hasher {
	return &Hasher{salt: []byte(salt)}
}

// HashOrigin returns the hex digest of the origin, or Unknown when the
// origin is empty or hashing fails. Attribution must never fail on this.
func (h *Hasher) HashOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return Unknown
	}
	key := h.salt
	if len(key) > 64 {
		key = key[:64] // blake2b key limit
	}
	mac, err := blake2b.New256(key)
	if err != nil {
		return Unknown
	}
	mac.Write([]byte(origin))
	return hex.EncodeToString(mac.Sum(nil))
}
