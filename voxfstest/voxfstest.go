// Package voxfstest provides shared test doubles for exercising the
// engine without a real backing file or wall clock, in the spirit of
// the teacher's testhelper.FileImpl.
package voxfstest

import (
	"fmt"

	"github.com/voxfs-go/voxfs/backend"
)

// FixedClock is a clock.Clock that always reports the same instant,
// useful for asserting exact timestamp bytes in round-trip tests.
type FixedClock struct {
	Nanos uint64
}

// NowNanos returns the fixed instant.
func (c FixedClock) NowNanos() uint64 {
	return c.Nanos
}

// SteppingClock is a clock.Clock that advances by Step nanoseconds
// every time it is read, useful for asserting access/modified/creation
// times differ across a sequence of calls.
type SteppingClock struct {
	Current uint64
	Step    uint64
}

// NowNanos returns the current instant and advances it by Step.
func (c *SteppingClock) NowNanos() uint64 {
	now := c.Current
	c.Current += c.Step
	return now
}

// FaultyStore wraps a real backend.Store, letting a test stub out
// Read/Write/Zero/Size with its own function to exercise the engine's
// BackendError wrapping paths without a real I/O failure. A nil hook
// falls through to the wrapped store's own method.
type FaultyStore struct {
	backend.Store

	ReadFn  func(offset, length uint64) ([]byte, error)
	WriteFn func(offset uint64, b []byte) error
	ZeroFn  func(start, end uint64) error
	SizeFn  func() (uint64, error)
}

func (f *FaultyStore) Read(offset, length uint64) ([]byte, error) {
	if f.ReadFn != nil {
		return f.ReadFn(offset, length)
	}
	return f.Store.Read(offset, length)
}

func (f *FaultyStore) Write(offset uint64, b []byte) error {
	if f.WriteFn != nil {
		return f.WriteFn(offset, b)
	}
	return f.Store.Write(offset, b)
}

func (f *FaultyStore) Zero(start, end uint64) error {
	if f.ZeroFn != nil {
		return f.ZeroFn(start, end)
	}
	return f.Store.Zero(start, end)
}

func (f *FaultyStore) Size() (uint64, error) {
	if f.SizeFn != nil {
		return f.SizeFn()
	}
	return f.Store.Size()
}

// byteDiff is one position where two compared byte slices disagree.
type byteDiff struct {
	Offset int
	Got    byte
	Want   byte
}

func diffBytes(got, want []byte) []byteDiff {
	n := len(got)
	if len(want) > n {
		n = len(want)
	}
	var diffs []byteDiff
	for i := 0; i < n; i++ {
		var g, w byte
		if i < len(got) {
			g = got[i]
		}
		if i < len(want) {
			w = want[i]
		}
		if g != w || i >= len(got) || i >= len(want) {
			diffs = append(diffs, byteDiff{Offset: i, Got: g, Want: w})
		}
	}
	return diffs
}

// DumpMismatch renders the byte positions where got and want disagree
// as a compact hex table, for use in test failure messages when a
// plain length/equality check isn't enough to see what went wrong.
func DumpMismatch(got, want []byte) string {
	diffs := diffBytes(got, want)
	if len(diffs) == 0 {
		return "(no differences)"
	}

	out := fmt.Sprintf("%d byte(s) differ:\n", len(diffs))
	const maxShown = 16
	for i, d := range diffs {
		if i >= maxShown {
			out += fmt.Sprintf("... and %d more\n", len(diffs)-maxShown)
			break
		}
		out += fmt.Sprintf("  offset %6d: got %02x want %02x\n", d.Offset, d.Got, d.Want)
	}
	return out
}
