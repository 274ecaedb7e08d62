// Package clock defines the wall-clock contract VoxFS relies on for
// inode and tag timestamps, plus a system-backed implementation for
// callers that do not need to inject their own.
package clock

import (
	"os"
	"strconv"
	"time"
)

// Clock produces the current time as nanoseconds since the Unix
// epoch. Implementations are external collaborators: the engine never
// reads the system clock directly, so tests can supply a fixed or
// stepped clock instead.
type Clock interface {
	NowNanos() uint64
}

// System is a Clock backed by time.Now(), honoring SOURCE_DATE_EPOCH
// for byte-reproducible images the way reproducible-build tooling
// expects: a formatted image built twice from identical inputs should
// produce identical inode/tag timestamps.
type System struct{}

// NowNanos returns SOURCE_DATE_EPOCH (if set to a valid Unix
// timestamp) or time.Now().UTC(), as nanoseconds since the Unix epoch.
func (System) NowNanos() uint64 {
	if epoch := os.Getenv("SOURCE_DATE_EPOCH"); epoch != "" {
		if secs, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			return uint64(time.Unix(secs, 0).UTC().UnixNano())
		}
	}
	return uint64(time.Now().UTC().UnixNano())
}
