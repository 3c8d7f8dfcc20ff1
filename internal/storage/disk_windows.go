//go:build windows

package storage

// checkDiskSpaceForWrite on Windows returns nil as disk space checking
// is not implemented for Windows. Writes proceed without verification.
func (s *SQLiteStore) checkDiskSpaceForWrite(dataSize int) error {
	return nil
}
