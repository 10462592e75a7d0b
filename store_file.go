package nucleus

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileStoreSaltLen  = 16
	fileStoreNonceLen = 24
	fileStoreKeyLen   = 32
)

// FileStore is a CredentialStore backed by an encrypted file. The credential
// JSON is sealed with a secretbox key derived from the passphrase via scrypt;
// salt and nonce are stored alongside the ciphertext. Writes go through a
// temp file plus rename so a crashed save never leaves a torn credential.
type FileStore struct {
	path       string
	passphrase []byte
}

type fileStoreEnvelope struct {
	Salt   []byte `json:"salt"`
	Nonce  []byte `json:"nonce"`
	Sealed []byte `json:"sealed"`
}

// NewFileStore returns a FileStore writing to path. The passphrase must be
// non-empty; callers typically derive it from a machine-local secret.
func NewFileStore(path, passphrase string) (*FileStore, error) {
	if path == "" {
		return nil, ConfigError{Reason: "file store path required"}
	}
	if passphrase == "" {
		return nil, ConfigError{Reason: "file store passphrase required"}
	}
	return &FileStore{path: path, passphrase: []byte(passphrase)}, nil
}

func (s *FileStore) Save(cred Credential) error {
	plain, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	salt := make([]byte, fileStoreSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	var nonce [fileStoreNonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return err
	}
	envelope := fileStoreEnvelope{
		Salt:   salt,
		Nonce:  nonce[:],
		Sealed: secretbox.Seal(nil, plain, &nonce, key),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credential-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}

func (s *FileStore) Load() (Credential, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, err
	}
	var envelope fileStoreEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Credential{}, false, fmt.Errorf("nucleus: corrupt credential file: %w", err)
	}
	if len(envelope.Nonce) != fileStoreNonceLen {
		return Credential{}, false, errors.New("nucleus: corrupt credential file: bad nonce")
	}
	key, err := s.deriveKey(envelope.Salt)
	if err != nil {
		return Credential{}, false, err
	}
	var nonce [fileStoreNonceLen]byte
	copy(nonce[:], envelope.Nonce)
	plain, ok := secretbox.Open(nil, envelope.Sealed, &nonce, key)
	if !ok {
		return Credential{}, false, errors.New("nucleus: credential file failed authentication")
	}
	var cred Credential
	if err := json.Unmarshal(plain, &cred); err != nil {
		return Credential{}, false, err
	}
	return cred, true, nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) deriveKey(salt []byte) (*[fileStoreKeyLen]byte, error) {
	raw, err := scrypt.Key(s.passphrase, salt, 1<<15, 8, 1, fileStoreKeyLen)
	if err != nil {
		return nil, err
	}
	var key [fileStoreKeyLen]byte
	copy(key[:], raw)
	return &key, nil
}
