package chain

import "errors"

// ErrRPC wraps any transport or protocol-level failure talking to the
// node. It is swallowed into a "missing" result by QueryStorage (the
// caller differentiates "missing" from "never got an answer" only by
// elapsed retry budget, per spec.md §4.C) after being logged at WARN; it
// does not reach the retry harness wrapping TryGetRelease.
var ErrRPC = errors.New("chain: rpc call failed")
