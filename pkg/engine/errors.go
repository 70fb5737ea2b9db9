// Package engine implements the profile store: per-profile file persistence
// with optional obfuscation, verify-after-write and backup rollback.
package engine

import "errors"

// Standard errors for the engine.
// Operations wrap the underlying cause so errors.Is matches both the kind
// and the original fs or codec error.
var (
	// ErrNoProfileID is returned when an operation receives an empty profile ID.
	ErrNoProfileID = errors.New("no profile id")
	// ErrInvalidProfileID is returned when a profile ID is not a single path element.
	ErrInvalidProfileID = errors.New("invalid profile id")
	// ErrProfileNotFound is returned when a profile has no primary data file.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned when a destination profile is already present.
	ErrProfileExists = errors.New("profile already exists")
	// ErrIO wraps file system failures.
	ErrIO = errors.New("profile io failure")
	// ErrSerialize is returned when a value cannot be encoded.
	ErrSerialize = errors.New("profile serialization failed")
	// ErrDeserialize is returned when stored content is not a valid encoding.
	ErrDeserialize = errors.New("profile deserialization failed")
	// ErrVerification is returned when a freshly written file does not load back.
	ErrVerification = errors.New("profile verification failed")
	// ErrBackupUnavailable is returned when a rollback finds no usable backup.
	ErrBackupUnavailable = errors.New("backup unavailable")
	// ErrInvalidConfig is returned by New for an unusable Config.
	ErrInvalidConfig = errors.New("invalid store config")
)
