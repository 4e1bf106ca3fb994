package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"lyricgate/internal/crypto"
)

// credentialFile is the on-disk envelope for the refresh credential.
type credentialFile struct {
	RefreshToken string `json:"refresh_token"`
}

// FileStore keeps the refresh credential in a single 0600 file, AES-GCM
// sealed when a cipher is configured.
type FileStore struct {
	path   string
	cipher *crypto.Cipher
}

// NewFileStore creates a store at path. cipher may be nil, in which case the
// file holds the plain JSON envelope.
func NewFileStore(path string, cipher *crypto.Cipher) *FileStore {
	return &FileStore{path: path, cipher: cipher}
}

// Load returns the stored refresh credential, or "" when no file exists.
func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	if f.cipher != nil {
		plain, err := f.cipher.Open(string(data))
		if err != nil {
			return "", fmt.Errorf("failed to unseal credential file: %w", err)
		}
		data = plain
	}

	var env credentialFile
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("failed to parse credential file: %w", err)
	}
	return env.RefreshToken, nil
}

// Save writes the refresh credential, creating parent directories as needed.
func (f *FileStore) Save(refreshToken string) error {
	data, err := json.Marshal(credentialFile{RefreshToken: refreshToken})
	if err != nil {
		return fmt.Errorf("failed to encode credential file: %w", err)
	}

	if f.cipher != nil {
		sealed, err := f.cipher.Seal(data)
		if err != nil {
			return fmt.Errorf("failed to seal credential file: %w", err)
		}
		data = []byte(sealed)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create credential directory: %w", err)
		}
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Clear removes the credential file. Missing file is not an error.
func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
