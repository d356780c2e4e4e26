// Package chainkey computes the opaque storage key the chain uses to
// address a (module, item) pair. It is a pure function — no I/O — and
// is the only place the module/item name constants live, per the
// "global-style constants live in one module" guidance.
package chainkey

// Module is the storage module this Runner reads from.
const Module = "VaultRegistry"

// Item names within Module.
const (
	ItemCurrentClientRelease = "CurrentClientRelease"
	ItemPendingClientRelease = "PendingClientRelease"
)
