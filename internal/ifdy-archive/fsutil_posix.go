//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package ifdyarchive

import (
	"golang.org/x/sys/unix"
)

// syncDir flushes a directory so a rename inside it survives a crash.
func syncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}
