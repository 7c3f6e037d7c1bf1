// Package files contains small filesystem helpers shared across the build
// pipeline.
package files

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	} else {
		return false, fmt.Errorf("failed to determine if %s exists: %w", path, err)
	}
}

// CopyFile copies src to dest, preserving the source's permission bits.
func CopyFile(src string, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s while copying to %s: %w", src, dest, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s while copying to %s: %w", src, dest, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s while copying %s: %w", dest, src, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dest, err)
	}
	return out.Close()
}

// SameDevice reports whether a and b reside on the same filesystem, by
// comparing device IDs. Neither path is followed if it is a symlink.
func SameDevice(a string, b string) (bool, uint64, uint64, error) {
	var statA, statB unix.Stat_t
	if err := unix.Lstat(a, &statA); err != nil {
		return false, 0, 0, fmt.Errorf("failed to stat %s: %w", a, err)
	}
	if err := unix.Lstat(b, &statB); err != nil {
		return false, 0, 0, fmt.Errorf("failed to stat %s: %w", b, err)
	}
	devA := uint64(statA.Dev) //nolint:unconvert // Dev is int32 on some platforms
	devB := uint64(statB.Dev) //nolint:unconvert
	return devA == devB, devA, devB, nil
}
