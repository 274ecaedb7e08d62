//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package file

import "os"

// blockDeviceSize has no ioctl-based implementation on this platform;
// callers fall back to os.FileInfo.Size().
func blockDeviceSize(f *os.File) (size uint64, err error, supported bool) {
	return 0, nil, false
}
