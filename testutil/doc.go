// Package testutil contains helpers for testing code that uses the
// intercept package.
//
// It provides canned applications (so round-trip tests don't copy/paste
// the same App closure), an environ-recording application for asserting
// on decoded requests, and a stub dialer for pinning down fallback
// behavior without touching the network.
//
// This package is intended for tests and examples; it is not a stable
// public API.
package testutil
