//go:build !windows

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// checkDiskSpaceForWrite verifies there is room for the write plus the
// safety floor. A failed stat never blocks the write, only warns.
func (s *SQLiteStore) checkDiskSpaceForWrite(dataSize int) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.dir, &stat); err != nil {
		// Store directory may not exist yet; try the parent.
		if err := unix.Statfs(filepath.Dir(s.dir), &stat); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to check disk space: %v\n", err)
			return nil
		}
	}

	total := stat.Blocks * uint64(stat.Bsize)
	available := stat.Bavail * uint64(stat.Bsize)

	required := uint64(MinDiskSpaceBytes)
	if uint64(dataSize*2) > required {
		required = uint64(dataSize * 2)
	}
	if available < required {
		return fmt.Errorf("%w: only %d MB available, need at least %d MB",
			ErrInsufficientDisk,
			available/(1024*1024),
			required/(1024*1024))
	}

	if total > 0 {
		usedPct := int(100 * (total - available) / total)
		if usedPct >= DiskWarningPercent {
			fmt.Fprintf(os.Stderr, "warning: disk is %d%% full, consider freeing space\n", usedPct)
		}
	}
	return nil
}
