package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/celerix-dev/celerix-profiles/pkg/logging"
)

// DefaultBackupExtension is appended to the primary file name to form the backup file name.
const DefaultBackupExtension = ".bak"

// Config describes where and how a Store keeps its files.
type Config struct {
	// DataDir is the store root; every subdirectory is a profile.
	DataDir string
	// FileName is the logical data file name, without extension.
	FileName string
	// FileExtension is appended to FileName, e.g. ".json". May be empty.
	FileExtension string
	// BackupExtension defaults to DefaultBackupExtension.
	BackupExtension string
	// ObfuscationKey defaults to DefaultObfuscationKey.
	ObfuscationKey []byte
}

// Option customizes a Store.
type Option func(*options)

type options struct {
	log   logging.Logger
	codec Codec
	mode  os.FileMode
}

// WithLogger sets the sink for warnings and errors. Defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithCodec sets the text encoding. Defaults to JSONCodec.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithFileMode sets the permissions of written files. Defaults to 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) { o.mode = mode }
}

// Store persists one value of type T per profile under Config.DataDir.
//
// A Store keeps no state between calls and does no locking: callers that
// touch the same profile from several goroutines must serialize access
// themselves.
type Store[T any] struct {
	cfg   Config
	log   logging.Logger
	codec Codec
	mode  os.FileMode
}

// New validates cfg and returns a Store. It does not touch the disk.
func New[T any](cfg Config, opts ...Option) (*Store[T], error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("%w: data dir is required", ErrInvalidConfig)
	}
	if cfg.FileName == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidConfig)
	}
	if cfg.BackupExtension == "" {
		cfg.BackupExtension = DefaultBackupExtension
	}
	if len(cfg.ObfuscationKey) == 0 {
		cfg.ObfuscationKey = []byte(DefaultObfuscationKey)
	}

	o := options{log: logging.NoOpLogger{}, codec: JSONCodec{}, mode: 0o644}
	for _, opt := range opts {
		opt(&o)
	}

	return &Store[T]{cfg: cfg, log: o.log, codec: o.codec, mode: o.mode}, nil
}

// Config returns the effective configuration, defaults applied.
func (s *Store[T]) Config() Config {
	return s.cfg
}

// Load reads a profile's data. When the primary file cannot be read or
// decoded it restores the primary from the backup once and retries.
func (s *Store[T]) Load(profileID string, obfuscated bool) (T, error) {
	return s.load(profileID, obfuscated, true)
}

// LoadStrict is Load without the backup rollback.
func (s *Store[T]) LoadStrict(profileID string, obfuscated bool) (T, error) {
	return s.load(profileID, obfuscated, false)
}

func (s *Store[T]) load(profileID string, obfuscated, allowRestore bool) (T, error) {
	var zero T
	if err := ValidateProfileID(profileID); err != nil {
		return zero, err
	}

	fullPath := s.ProfilePath(profileID)
	if !fileExists(fullPath) {
		return zero, ErrProfileNotFound
	}

	data, err := s.decodeFile(fullPath, obfuscated)
	if err == nil {
		return data, nil
	}

	if !allowRestore {
		s.log.Error("failed to load profile data, backup not used",
			"profile_id", profileID, "path", fullPath, "error", err)
		return zero, err
	}

	s.log.Warn("failed to load profile data, attempting rollback to backup",
		"profile_id", profileID, "path", fullPath, "error", err)
	if rbErr := s.attemptRollback(fullPath); rbErr != nil {
		s.log.Error("failed to load profile data and rollback did not work",
			"profile_id", profileID, "path", fullPath, "error", err)
		return zero, errors.Join(err, rbErr)
	}

	// Restore disabled so a bad backup cannot loop.
	return s.load(profileID, obfuscated, false)
}

func (s *Store[T]) decodeFile(path string, obfuscated bool) (T, error) {
	var data T

	text, err := readText(path)
	if err != nil {
		return data, fmt.Errorf("%w: %w", ErrIO, err)
	}
	if obfuscated {
		text = Obfuscate(text, s.cfg.ObfuscationKey)
	}
	if err := s.codec.Decode(text, &data); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrDeserialize, err)
	}
	return data, nil
}

// Save writes data as the profile's primary file, reads it back to verify
// it, and only then copies it over the backup file.
//
// When verification fails the backup is left untouched and the bad primary
// stays on disk; the returned ErrVerification is the caller's signal.
func (s *Store[T]) Save(profileID string, data T, obfuscated bool) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}

	fullPath := s.ProfilePath(profileID)
	backupPath := s.BackupPath(fullPath)

	text, err := s.codec.Encode(data)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSerialize, err)
		s.log.Error("failed to save profile data", "profile_id", profileID, "path", fullPath, "error", err)
		return err
	}
	if obfuscated {
		text = Obfuscate(text, s.cfg.ObfuscationKey)
	}

	if err := writeText(fullPath, text, s.mode); err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		s.log.Error("failed to save profile data", "profile_id", profileID, "path", fullPath, "error", err)
		return err
	}

	if _, err := s.LoadStrict(profileID, obfuscated); err != nil {
		err = fmt.Errorf("%w: %w", ErrVerification, err)
		s.log.Error("saved profile data could not be verified, backup not updated",
			"profile_id", profileID, "path", fullPath, "error", err)
		return err
	}

	if err := copyFile(fullPath, backupPath, s.mode); err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		s.log.Error("failed to update profile backup", "profile_id", profileID, "backup", backupPath, "error", err)
		return err
	}
	return nil
}

// Delete removes the whole profile directory. Deleting a profile without a
// primary file is logged and otherwise ignored.
func (s *Store[T]) Delete(profileID string) error {
	if profileID == "" {
		return nil
	}
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}

	fullPath := s.ProfilePath(profileID)
	if !fileExists(fullPath) {
		s.log.Warn("nothing to delete for profile", "profile_id", profileID, "path", fullPath)
		return nil
	}

	if err := removeProfileDir(filepath.Dir(fullPath)); err != nil {
		err = fmt.Errorf("%w: %w", ErrIO, err)
		s.log.Error("failed to delete profile data", "profile_id", profileID, "path", fullPath, "error", err)
		return err
	}
	return nil
}

// Enumerate loads every profile under the store root. Directories without a
// primary file, and profiles that fail to load even after rollback, are
// logged and skipped. Only an unreadable root is returned as an error.
func (s *Store[T]) Enumerate(obfuscated bool) (map[string]T, error) {
	profiles := make(map[string]T)

	if !dirExists(s.cfg.DataDir) {
		s.log.Warn("data directory does not exist yet, no profiles to load", "path", s.cfg.DataDir)
		return profiles, nil
	}

	ids, err := listSubdirectories(s.cfg.DataDir)
	if err != nil {
		return profiles, fmt.Errorf("%w: %w", ErrIO, err)
	}

	for _, profileID := range ids {
		fullPath := s.ProfilePath(profileID)
		if !fileExists(fullPath) {
			s.log.Warn("skipping directory without profile data", "profile_id", profileID, "path", fullPath)
			continue
		}

		data, err := s.Load(profileID, obfuscated)
		if err != nil {
			s.log.Error("failed to load profile, skipping", "profile_id", profileID, "error", err)
			continue
		}
		profiles[profileID] = data
	}
	return profiles, nil
}

// ProfileIDs lists the profile directories without loading them.
func (s *Store[T]) ProfileIDs() ([]string, error) {
	ids, err := listSubdirectories(s.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return ids, nil
}

// Exists reports whether the profile has a primary data file.
func (s *Store[T]) Exists(profileID string) bool {
	if ValidateProfileID(profileID) != nil {
		return false
	}
	return fileExists(s.ProfilePath(profileID))
}

// HasBackup reports whether the profile has a backup file.
func (s *Store[T]) HasBackup(profileID string) bool {
	if ValidateProfileID(profileID) != nil {
		return false
	}
	return fileExists(s.BackupPath(s.ProfilePath(profileID)))
}

// Restore overwrites the profile's primary file with its backup.
func (s *Store[T]) Restore(profileID string) error {
	if err := ValidateProfileID(profileID); err != nil {
		return err
	}
	return s.attemptRollback(s.ProfilePath(profileID))
}

// attemptRollback copies the backup of fullPath over fullPath.
func (s *Store[T]) attemptRollback(fullPath string) error {
	backupPath := s.BackupPath(fullPath)

	if !fileExists(backupPath) {
		s.log.Error("no backup file to roll back to", "backup", backupPath)
		return ErrBackupUnavailable
	}
	if err := copyFile(backupPath, fullPath, s.mode); err != nil {
		s.log.Error("failed to roll back to backup file", "backup", backupPath, "error", err)
		return fmt.Errorf("%w: %w", ErrBackupUnavailable, err)
	}

	s.log.Warn("rolled back to backup file", "backup", backupPath, "path", fullPath)
	return nil
}
