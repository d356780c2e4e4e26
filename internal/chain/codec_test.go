package chain

import (
	"bytes"
	"testing"
)

func TestClientReleaseRoundTrip(t *testing.T) {
	var hash [32]byte
	hash[0] = 0xab
	hash[31] = 0xcd

	original := ClientRelease{
		URI:      "https://github.com/interlay/interbtc-clients/releases/download/1.15.0/vault-standalone-metadata",
		CodeHash: hash,
	}

	blob := EncodeClientRelease(original)
	decoded, err := DecodeClientRelease(blob)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}

	if decoded.URI != original.URI {
		t.Fatalf("uri mismatch: got %q want %q", decoded.URI, original.URI)
	}
	if decoded.CodeHash != original.CodeHash {
		t.Fatalf("code_hash mismatch: got %x want %x", decoded.CodeHash, original.CodeHash)
	}
}

func TestDecodeClientReleaseTruncated(t *testing.T) {
	blob := EncodeClientRelease(ClientRelease{URI: "https://example.org/bin"})
	truncated := blob[:len(blob)-5]

	if _, err := DecodeClientRelease(truncated); err == nil {
		t.Fatalf("expected an error decoding a truncated blob")
	}
}

func TestDecodeClientReleaseEmpty(t *testing.T) {
	if _, err := DecodeClientRelease(nil); err == nil {
		t.Fatalf("expected an error decoding an empty blob")
	}
}

func TestCompactUintRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 63, 64, 16383, 16384, 1<<30 - 1, 1 << 30, 1 << 40}
	for _, v := range cases {
		encoded := encodeCompactUint(v)
		decoded, rest, err := decodeCompactUint(encoded)
		if err != nil {
			t.Fatalf("decode(%d) failed: %v", v, err)
		}
		if decoded != v {
			t.Fatalf("round trip mismatch: encoded %d, decoded %d", v, decoded)
		}
		if len(rest) != 0 {
			t.Fatalf("expected no leftover bytes, got %d", len(rest))
		}
	}
}

func TestCompactUintDecodesPrefixOnly(t *testing.T) {
	encoded := encodeCompactUint(97)
	payload := append(append([]byte{}, encoded...), []byte("trailing")...)

	decoded, rest, err := decodeCompactUint(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != 97 {
		t.Fatalf("expected 97, got %d", decoded)
	}
	if !bytes.Equal(rest, []byte("trailing")) {
		t.Fatalf("expected remaining bytes to be 'trailing', got %q", rest)
	}
}
