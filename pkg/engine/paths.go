package engine

import (
	"path/filepath"
	"strings"
)

// PathToFile returns root/profileID/fileName+extension.
func (s *Store[T]) PathToFile(profileID, fileName string) string {
	return filepath.Join(s.cfg.DataDir, profileID, fileName+s.cfg.FileExtension)
}

// ProfilePath returns the primary data file of a profile.
func (s *Store[T]) ProfilePath(profileID string) string {
	return s.PathToFile(profileID, s.cfg.FileName)
}

// BackupPath returns the backup file that shadows primaryPath.
func (s *Store[T]) BackupPath(primaryPath string) string {
	return primaryPath + s.cfg.BackupExtension
}

// ValidateProfileID rejects empty IDs and IDs that would resolve outside
// their own directory under the store root. Any directory name the root can
// hold passes, so enumerated IDs always validate.
func ValidateProfileID(profileID string) error {
	if profileID == "" {
		return ErrNoProfileID
	}
	if profileID == "." || profileID == ".." || strings.ContainsAny(profileID, pathSeparators) {
		return ErrInvalidProfileID
	}
	return nil
}

// pathSeparators is "/" plus the OS separator where that differs.
var pathSeparators = "/" + string(filepath.Separator)
