// Package chain talks to the node's JSON-RPC storage interface over a
// WebSocket connection and decodes the compact-binary ClientRelease
// blobs it returns.
package chain

// ClientRelease is the immutable snapshot of what the chain says should
// be running. URI is the canonical URL string; its final non-empty path
// segment is the binary name. CodeHash is a 32-byte opaque identifier,
// carried through but not cryptographically verified here (see
// spec.md §9 / SPEC_FULL.md §9).
type ClientRelease struct {
	URI      string
	CodeHash [32]byte
}

// DownloadedRelease is the on-host manifestation of a ClientRelease
// after a successful download: if one exists, a regular file exists at
// Path with mode 0700 and content byte-for-byte equal to what the HTTP
// fetch returned.
type DownloadedRelease struct {
	Release ClientRelease
	Path    string
	BinName string
}
