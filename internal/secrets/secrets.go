// Package secrets provides simple key-value credential storage.
// Credentials (LLM API keys, vault location) live in a 0600 JSON file under
// the voicenote data directory; there is no OS keychain dependency.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/config"
	. "github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/paths"
)

// KeyVaultDir holds the Obsidian vault location. Provider API keys use
// the key format from llm.CredentialKey.
const KeyVaultDir = "vault.dir"

// Store is the capability contract consumed by the pipeline and LLM layers.
// Set("") and Delete are both idempotent clears.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore implements Store backed by a JSON file.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

// Open loads (or initializes) the secret store at path.
// If path is empty the default location under ~/.voicenote is used.
func Open(path string) (*FileStore, error) {
	if path == "" {
		var err error
		path, err = paths.SecretsPath()
		if err != nil {
			return nil, err
		}
	}

	s := &FileStore{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("secrets: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("secrets: parse %s: %w", path, err)
	}

	L_debug("secrets: opened", "path", path, "keys", len(s.values))
	return s, nil
}

// Get returns the value for key and whether it was set.
// An empty stored value is treated as unset.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.values[key]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set stores a value. An empty value clears the key.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		delete(s.values, key)
	} else {
		s.values[key] = value
	}
	return s.persist()
}

// Delete removes a key. Deleting a missing key is a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persist()
}

func (s *FileStore) persist() error {
	if err := config.AtomicWriteJSON(s.path, s.values, 0600); err != nil {
		return fmt.Errorf("secrets: persist: %w", err)
	}
	return nil
}
