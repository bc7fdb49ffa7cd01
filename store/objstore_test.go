package store

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type memBucket struct {
	mu   sync.Mutex
	objs map[string][]byte
	err  error
}

func newMemBucket() *memBucket { return &memBucket{objs: map[string][]byte{}} }

func (m *memBucket) put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.objs[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBucket) get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memBucket) keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []string
	for k := range m.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *memBucket) remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objs, key)
	return nil
}

// The behavioural suite lives in storetest, which imports this package, so
// it cannot be used from an internal test. These cases mirror it.
func TestObjectStoreUpsertAndDelete(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	s := newObjectStore(b, "alice/")

	require.NoError(t, s.Upsert(ctx, "example.com", "blob-1"))
	first, err := Find(ctx, s, "example.com")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, "example.com", "blob-2"))
	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID)
	assert.Equal(t, "blob-2", entries[0].EncryptedData)

	for k := range b.objs {
		assert.True(t, strings.HasPrefix(k, "alice/entries/"), k)
		assert.NotContains(t, strings.TrimPrefix(k, "alice/entries/"), "/")
	}

	require.NoError(t, s.Upsert(ctx, "a / b", "blob-3"))
	other, err := Find(ctx, s, "a / b")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, IDRef(other.ID)))
	assert.ErrorIs(t, s.Delete(ctx, IDRef(other.ID)), ErrNotFound)
	require.NoError(t, s.Delete(ctx, NameRef("example.com")))
	assert.ErrorIs(t, s.Delete(ctx, NameRef("example.com")), ErrNotFound)

	ok, err := s.Exists(ctx, "example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, b.objs)
}

func TestObjectStoreIgnoresOtherPrefixes(t *testing.T) {
	ctx := context.Background()
	b := newMemBucket()
	alice := newObjectStore(b, "alice/")
	bob := newObjectStore(b, "bob/")

	require.NoError(t, alice.Upsert(ctx, "example.com", "a"))
	entries, err := bob.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestObjectStoreBackendFailure(t *testing.T) {
	b := newMemBucket()
	b.err = unavailable("get object", errors.New("connection refused"))
	s := newObjectStore(b, "")

	_, err := s.Exists(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = s.List(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, s.Upsert(context.Background(), "x", "y"), ErrStoreUnavailable)
}

func TestNewObjectStoreConfig(t *testing.T) {
	_, err := NewObjectStore(ObjectConfig{Bucket: "vault"})
	assert.Error(t, err)

	s, err := NewObjectStore(ObjectConfig{Endpoint: "127.0.0.1:9000", Bucket: "vault", AccessKeyID: "k", SecretAccessKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "entries/ZXhhbXBsZS5jb20.json", s.key("example.com"))
}

func TestMinioBucketListFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("k", "s", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	b := &minioBucket{client: client, bucket: "vault"}
	_, err = b.keys(context.Background(), "entries/")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
