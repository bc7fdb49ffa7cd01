package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const entriesFilename = "entries.json"

// FileStore keeps every entry in one JSON document inside Dir. Each write
// replaces the document atomically, so a crash leaves either the old or the
// new version on disk.
type FileStore struct {
	Dir string

	mu sync.Mutex
}

type fileDoc struct {
	Entries []Entry `json:"entries"`
}

// NewFileStore returns a FileStore rooted at dir, creating it with 0700.
func NewFileStore(dir string) (*FileStore, error) {
	s := &FileStore{Dir: dir}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path resolves the entries document path.
func (s *FileStore) Path() string {
	return filepath.Join(s.Dir, entriesFilename)
}

func (s *FileStore) ensureDir() error {
	if s.Dir == "" {
		return errors.New("store directory not specified")
	}
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

func (s *FileStore) load() (fileDoc, error) {
	var doc fileDoc

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}
		return doc, unavailable("read entries", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, unavailable("decode entries", err)
	}
	return doc, nil
}

func (s *FileStore) save(doc fileDoc) error {
	if err := s.ensureDir(); err != nil {
		return unavailable("save entries", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "entries-*.json")
	if err != nil {
		return unavailable("create temp entries", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return unavailable("write temp entries", err)
	}

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return unavailable("chmod temp entries", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return unavailable("close temp entries", err)
	}

	if err := os.Rename(tmpPath, s.Path()); err != nil {
		os.Remove(tmpPath)
		return unavailable("replace entries", err)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return false, err
	}
	for _, e := range doc.Entries {
		if e.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if doc.Entries == nil {
		return []Entry{}, nil
	}
	return doc.Entries, nil
}

func (s *FileStore) Upsert(_ context.Context, name, encryptedData string) error {
	if err := validateUpsert(name, encryptedData); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Entries {
		if doc.Entries[i].Name == name {
			doc.Entries[i].EncryptedData = encryptedData
			return s.save(doc)
		}
	}
	doc.Entries = append(doc.Entries, Entry{
		ID:            uuid.NewString(),
		Name:          name,
		EncryptedData: encryptedData,
		CreatedAt:     time.Now().UTC(),
	})
	return s.save(doc)
}

func (s *FileStore) Delete(_ context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, e := range doc.Entries {
		if matches(e, ref) {
			doc.Entries = append(doc.Entries[:i], doc.Entries[i+1:]...)
			return s.save(doc)
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func (s *FileStore) Close() error { return nil }

func matches(e Entry, ref Ref) bool {
	if ref.Kind == ByName {
		return e.Name == ref.Value
	}
	return e.ID == ref.Value
}
