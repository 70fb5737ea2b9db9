package engine

import (
	"fmt"
	"sort"
)

// Migrate copies every loadable profile from src into dst.
// This works for:
// - Plain -> Obfuscated (and back)
// - JSON -> YAML, or any other codec change
// - Moving a data directory to a new root or a new obfuscation key
func Migrate[T any](src, dst *Store[T], srcObfuscated, dstObfuscated bool) error {
	// 1. Load all profiles from the source
	profiles, err := src.Enumerate(srcObfuscated)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// 2. Save each one through the destination's verify-and-backup path
	for _, profileID := range ids {
		if err := dst.Save(profileID, profiles[profileID], dstObfuscated); err != nil {
			return fmt.Errorf("failed to migrate profile %s: %w", profileID, err)
		}
	}

	return nil
}
