// Package session persists the CLI's tokens between runs.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/gatekeeper/internal/filex"
)

// Tokens is what a logged-in CLI remembers.
type Tokens struct {
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoggedIn reports whether a refresh token is held.
func (t Tokens) LoggedIn() bool {
	return t.RefreshToken != ""
}

// FileStore keeps Tokens in a single JSON file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns the stored tokens. A missing file yields empty Tokens.
func (s *FileStore) Load() (Tokens, error) {
	var t Tokens

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return t, nil
		}
		return t, fmt.Errorf("read session: %w", err)
	}

	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, fmt.Errorf("decode session: %w", err)
	}
	return t, nil
}

func (s *FileStore) Save(t Tokens) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := filex.WritePrivate(s.path, data); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	return filex.RemoveIfExists(s.path)
}
