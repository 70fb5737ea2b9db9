// Package engine wraps the profile store for concurrent callers: the daemon's
// TCP and HTTP handlers and the embedded SDK mode.
package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/celerix-dev/celerix-profiles/pkg/engine"
	"github.com/celerix-dev/celerix-profiles/pkg/logging"
	"github.com/celerix-dev/celerix-profiles/pkg/schema"
)

// Service is our thread-safe profile facade.
type Service struct {
	mu         sync.Mutex // Serializes every store call; the store itself does no locking
	store      *engine.Store[schema.Document]
	obfuscated bool
	log        logging.Logger
}

// NewService wraps store. Every profile is read and written with the given obfuscation setting.
func NewService(store *engine.Store[schema.Document], obfuscated bool, log logging.Logger) *Service {
	if log == nil {
		log = logging.NoOpLogger{}
	}
	return &Service{store: store, obfuscated: obfuscated, log: log}
}

// --- Interface Implementation ---

func (s *Service) Get(profileID string) (schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Load(profileID, s.obfuscated)
}

func (s *Service) Put(profileID string, doc schema.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Save(profileID, normalize(doc), s.obfuscated)
}

// Create stores doc under a freshly generated profile ID.
func (s *Service) Create(doc schema.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profileID := uuid.NewString()
	if err := s.store.Save(profileID, normalize(doc), s.obfuscated); err != nil {
		return "", err
	}
	s.log.Info("profile created", "profile_id", profileID)
	return profileID, nil
}

// Delete removes a profile. Unlike the store, a missing profile is an error
// here so remote callers can tell the difference.
func (s *Service) Delete(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkExists(profileID); err != nil {
		return err
	}
	return s.store.Delete(profileID)
}

func (s *Service) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.store.ProfileIDs()
	if err != nil {
		return nil, err
	}

	list := make([]string, 0, len(ids))
	for _, id := range ids {
		if s.store.Exists(id) {
			list = append(list, id)
		}
	}
	return list, nil
}

// Dump loads every valid profile.
func (s *Service) Dump() (map[string]schema.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Enumerate(s.obfuscated)
}

// Move transfers a profile's data to a new profile ID and deletes the source.
func (s *Service) Move(srcProfile, dstProfile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(srcProfile, s.obfuscated)
	if err != nil {
		return err
	}
	if err := engine.ValidateProfileID(dstProfile); err != nil {
		return err
	}
	if s.store.Exists(dstProfile) {
		return engine.ErrProfileExists
	}
	if err := s.store.Save(dstProfile, doc, s.obfuscated); err != nil {
		return err
	}
	return s.store.Delete(srcProfile)
}

// Restore overwrites a profile's primary file with its backup.
func (s *Service) Restore(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Restore(profileID); err != nil {
		return err
	}
	s.log.Info("profile restored from backup", "profile_id", profileID)
	return nil
}

// checkExists must be called while holding s.mu.
func (s *Service) checkExists(profileID string) error {
	if err := engine.ValidateProfileID(profileID); err != nil {
		return err
	}
	if !s.store.Exists(profileID) {
		return engine.ErrProfileNotFound
	}
	return nil
}

// normalize stores a missing document as an empty object rather than null.
func normalize(doc schema.Document) schema.Document {
	if doc == nil {
		return schema.Document{}
	}
	return doc
}
