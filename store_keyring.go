package nucleus

import (
	"encoding/json"
	"errors"

	"github.com/zalando/go-keyring"
)

const (
	defaultKeyringService = "nucleus-go"
	defaultKeyringAccount = "default"
)

// KeyringStore persists the credential in the platform keychain (macOS
// Keychain, Windows Credential Manager, libsecret on Linux) via go-keyring.
type KeyringStore struct {
	service string
	account string
}

// NewKeyringStore returns a KeyringStore under the given service and account
// names; empty arguments fall back to the package defaults.
func NewKeyringStore(service, account string) *KeyringStore {
	if service == "" {
		service = defaultKeyringService
	}
	if account == "" {
		account = defaultKeyringAccount
	}
	return &KeyringStore{service: service, account: account}
}

func (s *KeyringStore) Save(cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, s.account, string(data))
}

func (s *KeyringStore) Load() (Credential, bool, error) {
	raw, err := keyring.Get(s.service, s.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, err
	}
	var cred Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return Credential{}, false, err
	}
	return cred, true, nil
}

func (s *KeyringStore) Clear() error {
	err := keyring.Delete(s.service, s.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
