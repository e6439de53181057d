//go:build !darwin && !dragonfly && !freebsd && !linux && !netbsd && !openbsd

package ifdyarchive

// syncDir is a no-op where directories cannot be opened for syncing.
func syncDir(dir string) error {
	return nil
}
