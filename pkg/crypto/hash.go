// Package crypto provides the digest and signing primitives used by the
// planner and the local signer.
package crypto

import (
	"encoding/binary"

	"github.com/subfrost/swapengine/pkg/types"
	"github.com/zeebo/blake3"
)

// HashParts is BLAKE3-256 over each part prefixed with its little-endian
// length, so ("ab","c") and ("a","bc") differ.
func HashParts(parts ...[]byte) types.Hash {
	h := blake3.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out
}
