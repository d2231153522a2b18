//go:build !windows

package webstorage

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes an exclusive flock on f, blocking until it is free.
// flock locks belong to the open file description, so two Areas of one
// process exclude each other as well.
func lockFile(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
