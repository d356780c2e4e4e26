package chain

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrCodec is returned when a storage blob fails to decode into a
// ClientRelease — truncated input, a compact length that overruns the
// remaining bytes, or invalid UTF-8 in the URI.
var ErrCodec = errors.New("chain: failed to decode storage blob")

// DecodeClientRelease decodes a ClientRelease from the chain's
// fixed wire schema: a SCALE-compatible compact unsigned integer giving
// the byte length of the URI, that many UTF-8 bytes, then a fixed
// 32-byte code hash.
func DecodeClientRelease(data []byte) (ClientRelease, error) {
	uriLen, rest, err := decodeCompactUint(data)
	if err != nil {
		return ClientRelease{}, fmt.Errorf("%w: uri length: %v", ErrCodec, err)
	}

	if uint64(len(rest)) < uriLen {
		return ClientRelease{}, fmt.Errorf("%w: declared uri length %d exceeds remaining %d bytes", ErrCodec, uriLen, len(rest))
	}
	uriBytes := rest[:uriLen]
	rest = rest[uriLen:]

	if len(rest) < 32 {
		return ClientRelease{}, fmt.Errorf("%w: expected 32-byte code_hash, only %d bytes remain", ErrCodec, len(rest))
	}

	if !utf8.Valid(uriBytes) {
		return ClientRelease{}, fmt.Errorf("%w: uri is not valid UTF-8", ErrCodec)
	}

	var codeHash [32]byte
	copy(codeHash[:], rest[:32])

	return ClientRelease{
		URI:      string(uriBytes),
		CodeHash: codeHash,
	}, nil
}

// EncodeClientRelease is the inverse of DecodeClientRelease. It exists
// primarily to let tests construct well-formed wire blobs without
// hand-assembling compact-length bytes, and would be used by any future
// tooling that needs to fabricate chain storage fixtures.
func EncodeClientRelease(r ClientRelease) []byte {
	uriBytes := []byte(r.URI)
	out := encodeCompactUint(uint64(len(uriBytes)))
	out = append(out, uriBytes...)
	out = append(out, r.CodeHash[:]...)
	return out
}

// decodeCompactUint decodes a SCALE-style compact unsigned integer from
// the front of data, returning its value and the remaining bytes.
//
// Mode is carried in the low two bits of the first byte:
//
//	00 — single-byte mode, value in the upper 6 bits.
//	01 — two-byte mode, value in the upper 6 bits of byte 0 plus all of byte 1.
//	10 — four-byte mode, value in the upper 6 bits of byte 0 plus the next 3 bytes.
//	11 — big-integer mode: upper 6 bits of byte 0 encode (byte count - 4); that
//	     many little-endian bytes follow. Values this large never occur for a
//	     release-URI byte length, but decoding is implemented for fidelity.
func decodeCompactUint(data []byte) (uint64, []byte, error) {
	if len(data) == 0 {
		return 0, nil, errors.New("empty input")
	}

	mode := data[0] & 0b11
	switch mode {
	case 0b00:
		return uint64(data[0] >> 2), data[1:], nil
	case 0b01:
		if len(data) < 2 {
			return 0, nil, errors.New("truncated two-byte compact integer")
		}
		v := uint64(data[0]>>2) | uint64(data[1])<<6
		return v, data[2:], nil
	case 0b10:
		if len(data) < 4 {
			return 0, nil, errors.New("truncated four-byte compact integer")
		}
		v := uint64(data[0]>>2) |
			uint64(data[1])<<6 |
			uint64(data[2])<<14 |
			uint64(data[3])<<22
		return v, data[4:], nil
	default: // 0b11
		n := int(data[0]>>2) + 4
		if len(data) < 1+n {
			return 0, nil, fmt.Errorf("truncated big-integer compact integer: need %d bytes", n)
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(data[1+i])
		}
		return v, data[1+n:], nil
	}
}

// encodeCompactUint is the inverse of decodeCompactUint, used only by
// EncodeClientRelease / tests.
func encodeCompactUint(v uint64) []byte {
	switch {
	case v < 1<<6:
		return []byte{byte(v << 2)}
	case v < 1<<14:
		return []byte{byte(v<<2) | 0b01, byte(v >> 6)}
	case v < 1<<30:
		return []byte{
			byte(v<<2) | 0b10,
			byte(v >> 6),
			byte(v >> 14),
			byte(v >> 22),
		}
	default:
		var buf []byte
		n := v
		for n > 0 {
			buf = append(buf, byte(n))
			n >>= 8
		}
		header := byte((len(buf)-4)<<2) | 0b11
		return append([]byte{header}, buf...)
	}
}
