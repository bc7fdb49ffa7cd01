package store

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const entryObjectPrefix = "entries/"

// ObjectConfig locates an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	// Prefix is prepended to every object key, e.g. "alice/".
	Prefix string
}

// bucket is the object-level surface ObjectStore needs.
type bucket interface {
	put(ctx context.Context, key string, data []byte) error
	get(ctx context.Context, key string) ([]byte, error)
	keys(ctx context.Context, prefix string) ([]string, error)
	remove(ctx context.Context, key string) error
}

// ObjectStore keeps one JSON object per entry, keyed by the base64url form of
// its name so lookups by name need no index. Object stores offer no unique
// constraint, so concurrent writers from different processes can race; a
// single process is serialized by mu.
type ObjectStore struct {
	b      bucket
	prefix string

	mu sync.Mutex
}

// NewObjectStore builds a minio client for cfg. It does not contact the server.
func NewObjectStore(cfg ObjectConfig) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("object store endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}
	return newObjectStore(&minioBucket{client: client, bucket: cfg.Bucket}, cfg.Prefix), nil
}

func newObjectStore(b bucket, prefix string) *ObjectStore {
	return &ObjectStore{b: b, prefix: prefix}
}

func (s *ObjectStore) key(name string) string {
	return s.prefix + entryObjectPrefix + base64.RawURLEncoding.EncodeToString([]byte(name)) + ".json"
}

func (s *ObjectStore) read(ctx context.Context, key string) (Entry, error) {
	var e Entry
	data, err := s.b.get(ctx, key)
	if err != nil {
		return e, err
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return e, unavailable("decode entry object", err)
	}
	return e, nil
}

func (s *ObjectStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.b.get(ctx, s.key(name))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, err
}

func (s *ObjectStore) List(ctx context.Context) ([]Entry, error) {
	keys, err := s.b.keys(ctx, s.prefix+entryObjectPrefix)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		e, err := s.read(ctx, k)
		if errors.Is(err, ErrNotFound) {
			// removed between list and get
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *ObjectStore) Upsert(ctx context.Context, name, encryptedData string) error {
	if err := validateUpsert(name, encryptedData); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(name)
	e, err := s.read(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		e = Entry{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	case err != nil:
		return err
	}
	e.EncryptedData = encryptedData

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return s.b.put(ctx, key, data)
}

func (s *ObjectStore) Delete(ctx context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := ref.Value
	if ref.Kind == ByID {
		entries, err := s.List(ctx)
		if err != nil {
			return err
		}
		name = ""
		for _, e := range entries {
			if e.ID == ref.Value {
				name = e.Name
				break
			}
		}
		if name == "" {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
	}

	key := s.key(name)
	if _, err := s.b.get(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return err
	}
	return s.b.remove(ctx, key)
}

func (s *ObjectStore) Close() error { return nil }

type minioBucket struct {
	client *minio.Client
	bucket string
}

func (m *minioBucket) put(ctx context.Context, key string, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return unavailable("put object", err)
	}
	return nil
}

func (m *minioBucket) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.wrap("get object", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.wrap("read object", err)
	}
	return data, nil
}

func (m *minioBucket) keys(ctx context.Context, prefix string) ([]string, error) {
	// stops the listing goroutine when we return early
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var keys []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, unavailable("list objects", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	return keys, nil
}

func (m *minioBucket) remove(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return unavailable("remove object", err)
	}
	return nil
}

func (m *minioBucket) wrap(op string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return unavailable(op, err)
}
