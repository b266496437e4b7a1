package zoho

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
)

// TokenStore persists exactly one TokenRecord to a local JSON file. The path
// is injected at construction so tests can isolate state under temporary
// directories. All writes go through an atomic temp-file-and-rename so a
// crash mid-write never corrupts the previous valid record.
type TokenStore struct {
	mu   sync.Mutex
	path string
	last *TokenRecord
}

// NewTokenStore creates a token store backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the backing file path.
func (s *TokenStore) Path() string { return s.path }

// Load reads the persisted record if present. A missing, unreadable, or
// corrupt file is not fatal: the system must still be able to bootstrap via
// a fresh authorization flow, so Load logs a warning and returns nil.
func (s *TokenStore) Load() *TokenRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("failed to load tokens from %s: %v", s.path, err)
		}
		return nil
	}

	rec := &TokenRecord{}
	if err = json.Unmarshal(data, rec); err != nil {
		log.Warnf("failed to parse token file %s: %v", s.path, err)
		return nil
	}
	s.last = rec
	return rec.Clone()
}

// Save persists candidate as the new durable state. If a previously held
// record carried a refresh token and candidate does not, the old refresh
// token is copied into candidate before writing; the refresh token is never
// overwritten with an empty value. After a successful write the file is
// restricted to owner read/write.
func (s *TokenStore) Save(candidate *TokenRecord) error {
	if candidate == nil {
		return &PersistenceError{Path: s.path, Err: fmt.Errorf("nil token record")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if candidate.RefreshToken == "" && s.last != nil && s.last.RefreshToken != "" {
		candidate.RefreshToken = s.last.RefreshToken
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	if err = s.writeAtomic(data); err != nil {
		return &PersistenceError{Path: s.path, Err: err}
	}

	s.last = candidate.Clone()
	log.Debugf("saved tokens to %s", s.path)
	return nil
}

// writeAtomic writes data to a temp file in the target directory, fsyncs,
// fixes permissions, then renames over the destination so concurrent readers
// never observe a half-written file.
func (s *TokenStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op when the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp token file: %w", err)
	}
	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
