package nucleus

import "sync"

// CredentialStore persists the single active credential. Implementations must
// make Save atomic (no partially written credential ever loads) and Clear
// idempotent.
type CredentialStore interface {
	// Save replaces the stored credential.
	Save(cred Credential) error
	// Load returns the stored credential, reporting ok=false when nothing is
	// stored.
	Load() (cred Credential, ok bool, err error)
	// Clear removes the stored credential. Clearing an empty store is not an
	// error.
	Clear() error
}

// MemoryStore is an in-process CredentialStore, mainly for tests and
// short-lived tools that should not persist tokens.
type MemoryStore struct {
	mu   sync.Mutex
	cred *Credential
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &cred
	return nil
}

func (s *MemoryStore) Load() (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return Credential{}, false, nil
	}
	return *s.cred, true, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
