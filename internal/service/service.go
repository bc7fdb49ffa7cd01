package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Hussein-Mazeh/PassForge/internal/generator"
	"github.com/Hussein-Mazeh/PassForge/internal/vault"
	"github.com/Hussein-Mazeh/PassForge/store"
)

// ErrNameTaken is returned by Rename when the target name already exists.
var ErrNameTaken = errors.New("entry name already taken")

// Options tunes a Service. Zero values select the package defaults.
type Options struct {
	// PBKDF2 iterations for the per-entry vault key.
	Iterations int
	// MaxSuffix caps the " (n)" collision suffix.
	MaxSuffix int
	Log       *slog.Logger
}

// Service exposes high-level password and vault operations for the CLI and
// the API host.
type Service struct {
	store    store.Store
	gen      *generator.Generator
	codec    vault.Codec
	resolver vault.Resolver
	log      *slog.Logger
}

// New returns a service bound to a store and a generator.
func New(s store.Store, gen *generator.Generator, opts Options) *Service {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    s,
		gen:      gen,
		codec:    vault.NewCodec(opts.Iterations),
		resolver: vault.Resolver{Store: s, MaxSuffix: opts.MaxSuffix, Log: log},
		log:      log,
	}
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}

// Generate derives the password for params. Nothing is persisted.
func (s *Service) Generate(ctx context.Context, passphrase []byte, params generator.DerivationParams) (string, error) {
	return s.gen.Generate(ctx, passphrase, params)
}

// Save seals params under a fresh collision-free name and stores the entry.
// The record carries the generator's current cost so the password stays
// reproducible if the configured cost changes later.
func (s *Service) Save(ctx context.Context, passphrase []byte, params generator.DerivationParams) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	if len(passphrase) == 0 {
		return "", errors.New("passphrase is required")
	}

	name, err := s.resolver.Resolve(ctx, vault.BaseName(params))
	if err != nil {
		return "", fmt.Errorf("resolve name: %w", err)
	}

	blob, err := s.codec.Seal(passphrase, name, vault.NewRecord(params, s.gen.Cost()))
	if err != nil {
		return "", fmt.Errorf("seal entry: %w", err)
	}
	if err := s.store.Upsert(ctx, name, blob); err != nil {
		return "", fmt.Errorf("save entry: %w", err)
	}
	s.log.Info("entry saved", "name", name)
	return name, nil
}

// Open decrypts the entry called name.
func (s *Service) Open(ctx context.Context, passphrase []byte, name string) (vault.Record, error) {
	e, err := store.Find(ctx, s.store, name)
	if err != nil {
		return vault.Record{}, err
	}
	return s.codec.Open(passphrase, e.Name, e.EncryptedData)
}

// Recalled is a reopened entry together with the password it reproduces.
type Recalled struct {
	Name     string
	Record   vault.Record
	Password string
}

// Recall opens the entry called name and regenerates its password under the
// cost recorded in the entry.
func (s *Service) Recall(ctx context.Context, passphrase []byte, name string) (Recalled, error) {
	rec, err := s.Open(ctx, passphrase, name)
	if err != nil {
		return Recalled{}, err
	}
	pw, err := s.gen.GenerateWith(ctx, passphrase, rec.Params(), rec.CostOr(s.gen.Cost()))
	if err != nil {
		return Recalled{}, err
	}
	return Recalled{Name: name, Record: rec, Password: pw}, nil
}

// Edit replaces the parameters stored under name, keeping the name and the
// recorded cost. The passphrase must open the existing entry.
func (s *Service) Edit(ctx context.Context, passphrase []byte, name string, params generator.DerivationParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	old, err := s.Open(ctx, passphrase, name)
	if err != nil {
		return err
	}

	rec := vault.NewRecord(params, old.CostOr(s.gen.Cost()))
	blob, err := s.codec.Seal(passphrase, name, rec)
	if err != nil {
		return fmt.Errorf("seal entry: %w", err)
	}
	if err := s.store.Upsert(ctx, name, blob); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	s.log.Info("entry updated", "name", name)
	return nil
}

// Rename moves the entry to newName. The record is re-encrypted under the
// key for newName, written, and only then is the old entry removed. A failed
// delete leaves both names in the store and is reported.
func (s *Service) Rename(ctx context.Context, passphrase []byte, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.New("new name is required")
	}
	if newName == oldName {
		return nil
	}

	taken, err := s.store.Exists(ctx, newName)
	if err != nil {
		return fmt.Errorf("probe name: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: %q", ErrNameTaken, newName)
	}

	e, err := store.Find(ctx, s.store, oldName)
	if err != nil {
		return err
	}
	blob, err := s.codec.Reseal(passphrase, oldName, newName, e.EncryptedData)
	if err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, newName, blob); err != nil {
		return fmt.Errorf("save renamed entry: %w", err)
	}
	if err := s.store.Delete(ctx, store.NameRef(oldName)); err != nil {
		return fmt.Errorf("remove old entry %q: %w", oldName, err)
	}
	s.log.Info("entry renamed", "from", oldName, "to", newName)
	return nil
}

// Delete removes an entry by id or name.
func (s *Service) Delete(ctx context.Context, ref store.Ref) error {
	if ref.Value == "" {
		return errors.New("entry id or name is required")
	}
	if err := s.store.Delete(ctx, ref); err != nil {
		return err
	}
	s.log.Info("entry deleted", "ref", ref.String())
	return nil
}

// Item is the listing view of an entry; the encrypted blob is omitted.
type Item struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// List returns all entries sorted by name.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	entries, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{ID: e.ID, Name: e.Name, CreatedAt: e.CreatedAt})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Search returns the entries whose name contains query, ignoring case.
// An empty query matches everything.
func (s *Service) Search(ctx context.Context, query string) ([]Item, error) {
	items, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(items, query), nil
}

// Group is the set of entries that share a service.
type Group struct {
	Service string
	Items   []Item
}

// Group returns the entries matching query grouped by service.
func (s *Service) Group(ctx context.Context, query string) ([]Group, error) {
	items, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return GroupByService(items), nil
}

// Filter keeps the items whose name contains query, ignoring case.
func Filter(items []Item, query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	var out []Item
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// GroupByService buckets items by vault.ServiceOf(name). Groups are sorted
// by service and items within a group by name.
func GroupByService(items []Item) []Group {
	idx := map[string]int{}
	var groups []Group
	for _, it := range items {
		svc := vault.ServiceOf(it.Name)
		i, ok := idx[svc]
		if !ok {
			i = len(groups)
			idx[svc] = i
			groups = append(groups, Group{Service: svc})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Service < groups[j].Service })
	for _, g := range groups {
		sort.Slice(g.Items, func(i, j int) bool { return g.Items[i].Name < g.Items[j].Name })
	}
	return groups
}
