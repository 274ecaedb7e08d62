//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package file

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// blkGetSize64 is the Linux BLKGETSIZE64 ioctl request number: get the
// size of a block device in bytes, where os.FileInfo.Size() reports 0.
const blkGetSize64 = 0x80081272

// blockDeviceSize queries the kernel for the size of a raw block
// device via ioctl. supported reports whether this platform/file
// combination was eligible for the ioctl path at all; callers fall
// back to os.FileInfo.Size() when supported is false.
func blockDeviceSize(f *os.File) (size uint64, err error, supported bool) {
	var devsize uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), blkGetSize64, uintptr(unsafe.Pointer(&devsize)))
	if errno != 0 {
		return 0, fmt.Errorf("file: BLKGETSIZE64 ioctl failed: %w", errno), true
	}
	return devsize, nil, true
}
