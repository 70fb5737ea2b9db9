package sdk

import "github.com/celerix-dev/celerix-profiles/pkg/schema"

// --- Functional Interfaces (Interface Segregation) ---

// ProfileReader defines the basic read operation for the store.
type ProfileReader interface {
	Get(profileID string) (schema.Document, error)
}

// ProfileWriter defines the basic write and delete operations for the store.
type ProfileWriter interface {
	Put(profileID string, doc schema.Document) error
	Delete(profileID string) error
}

// ProfileEnumeration allows discovering profiles.
type ProfileEnumeration interface {
	List() ([]string, error)
	Dump() (map[string]schema.Document, error)
}

// Orchestrator handles higher-level profile operations.
type Orchestrator interface {
	// Create stores doc under a generated profile ID and returns it.
	Create(doc schema.Document) (string, error)
	// Move transfers a profile to a new ID.
	Move(srcProfile, dstProfile string) error
	// Restore rolls a profile back to its last verified backup.
	Restore(profileID string) error
}

// --- Composite Interfaces ---

// ProfileStore is the primary interface for interacting with the profile store.
// Both the embedded service and the remote client implement it.
type ProfileStore interface {
	ProfileReader
	ProfileWriter
	ProfileEnumeration
	Orchestrator
}
