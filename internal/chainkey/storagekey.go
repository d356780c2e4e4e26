package chainkey

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// twox128 is the chain's fixed namespacing hash: two 64-bit xxHash
// digests of data, seeded 0 and 1 respectively, concatenated
// little-endian. This is the exact construction Substrate-family chains
// use for "twox_128" — not an approximation — so storage keys computed
// here address the same chain state a node would.
func twox128(data []byte) [16]byte {
	var out [16]byte
	putUint64LE(out[0:8], seededSum64(data, 0))
	putUint64LE(out[8:16], seededSum64(data, 1))
	return out
}

// seededSum64 hashes data with xxHash64 using the given seed.
// cespare/xxhash/v2 exposes seeding only through the streaming Digest
// (NewWithSeed), not as a one-shot function — used directly here for
// fidelity to the real seeded algorithm.
func seededSum64(data []byte, seed uint64) uint64 {
	d := xxhash.NewWithSeed(seed)
	d.Write(data) //nolint:errcheck // hash.Hash.Write never fails
	return d.Sum64()
}

func putUint64LE(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// StorageKey computes the 66-character lowercase hex string
// "0x" ++ hex(twox128(module) ++ twox128(item)) used to address a
// single value in chain storage.
func StorageKey(module, item string) string {
	var key [32]byte
	mh := twox128([]byte(module))
	ih := twox128([]byte(item))
	copy(key[0:16], mh[:])
	copy(key[16:32], ih[:])
	return "0x" + hex.EncodeToString(key[:])
}
