// Package iox provides small I/O cleanup helpers for resources whose Close
// error is rarely actionable by the caller. The queue connector uses
// DiscardClose to close its cached channels.
package iox

import "io"

// DiscardClose closes c and discards the error. Use in defer statements
// where a close failure is unactionable:
//
//	defer iox.DiscardClose(conn)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c, for t.Cleanup/b.Cleanup
// registration in tests.
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error. Use for non-Close
// cleanup calls (e.g. a channel's Cancel) where the error is unactionable.
func DiscardErr(fn func() error) { _ = fn() }
