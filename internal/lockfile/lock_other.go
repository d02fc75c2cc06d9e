//go:build !unix

package lockfile

import "os"

// flockExclusive is a no-op on platforms without flock; the PID file
// alone provides best-effort exclusion there.
func flockExclusive(f *os.File) error {
	return nil
}
