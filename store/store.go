// Package store defines the vault entry store boundary and its backends.
// Entries are opaque to the store: it keys them by name and never sees
// plaintext.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreUnavailable wraps transport, driver and filesystem failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned when a delete or lookup matches nothing.
	ErrNotFound = errors.New("entry not found")
	// ErrInvalidEntry is returned by Upsert when name or data is empty.
	ErrInvalidEntry = errors.New("name and encryptedData are required")
)

// Entry is one persisted vault record.
type Entry struct {
	ID            string    `json:"_id"`
	Name          string    `json:"name"`
	EncryptedData string    `json:"encryptedData"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RefKind selects which key a Ref addresses.
type RefKind int

const (
	ByID RefKind = iota
	ByName
)

func (k RefKind) String() string {
	if k == ByName {
		return "name"
	}
	return "id"
}

// Ref addresses an entry for deletion.
type Ref struct {
	Kind  RefKind
	Value string
}

// IDRef addresses an entry by its store id.
func IDRef(id string) Ref { return Ref{Kind: ByID, Value: id} }

// NameRef addresses an entry by name.
func NameRef(name string) Ref { return Ref{Kind: ByName, Value: name} }

func (r Ref) String() string { return r.Kind.String() + "=" + r.Value }

// Store is the vault entry store. Upsert overwrites the encrypted data of an
// existing entry with the same name and keeps its id and creation time.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]Entry, error)
	Upsert(ctx context.Context, name, encryptedData string) error
	Delete(ctx context.Context, ref Ref) error
	Close() error
}

// Find returns the entry called name.
func Find(ctx context.Context, s Store, name string) (Entry, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func validateUpsert(name, encryptedData string) error {
	if name == "" || encryptedData == "" {
		return ErrInvalidEntry
	}
	return nil
}
