package vault

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PassForge/internal/generator"
)

type nameSet struct {
	names  map[string]bool
	probes int
	err    error
}

func newNameSet(names ...string) *nameSet {
	s := &nameSet{names: map[string]bool{}}
	for _, n := range names {
		s.names[n] = true
	}
	return s
}

func (s *nameSet) Exists(_ context.Context, name string) (bool, error) {
	s.probes++
	if s.err != nil {
		return false, s.err
	}
	return s.names[name], nil
}

func TestBaseName(t *testing.T) {
	p := generator.NewParams("example.com")
	assert.Equal(t, "example.com", BaseName(p))

	p.Account = "alice"
	assert.Equal(t, "example.com / alice", BaseName(p))

	p.Device = "laptop"
	p.Version = "02"
	assert.Equal(t, "example.com / alice / laptop / 02", BaseName(p))

	p = generator.NewParams(" example.com ")
	p.Version = "01"
	p.Device = ""
	assert.Equal(t, "example.com / 01", BaseName(p))
}

func TestServiceOf(t *testing.T) {
	cases := map[string]string{
		"example.com":              "example.com",
		"example.com (3)":          "example.com",
		"example.com / alice":      "example.com",
		"example.com / alice (12)": "example.com",
		"mail (work) / bob":        "mail (work)",
		"":                         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ServiceOf(in), in)
	}
}

func TestResolveFreeBase(t *testing.T) {
	r := Resolver{Store: newNameSet("other")}
	name, err := r.Resolve(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, "example.com", name)
}

func TestResolveCollisions(t *testing.T) {
	for k := 1; k <= 5; k++ {
		names := []string{"example.com"}
		for n := 1; n < k; n++ {
			names = append(names, fmt.Sprintf("example.com (%d)", n))
		}
		set := newNameSet(names...)

		name, err := Resolver{Store: set}.Resolve(context.Background(), "example.com")
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("example.com (%d)", k), name)
		assert.False(t, set.names[name])
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	set := newNameSet("a", "a (1)", "a (3)")
	r := Resolver{Store: set}

	first, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a (2)", first)
	assert.Equal(t, first, second)
}

func TestResolveExhausted(t *testing.T) {
	set := newNameSet("a", "a (1)", "a (2)", "a (3)")
	_, err := Resolver{Store: set, MaxSuffix: 3}.Resolve(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNameSpaceExhausted)
	assert.Equal(t, 4, set.probes)

	set.names["a (4)"] = false
	name, err := Resolver{Store: set, MaxSuffix: 4}.Resolve(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a (4)", name)
}

func TestResolveDefaultCap(t *testing.T) {
	set := newNameSet("a")
	for n := 1; n <= DefaultMaxSuffix; n++ {
		set.names[fmt.Sprintf("a (%d)", n)] = true
	}
	_, err := Resolver{Store: set}.Resolve(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNameSpaceExhausted)
	assert.Equal(t, DefaultMaxSuffix+1, set.probes)
}

func TestResolvePropagatesStoreError(t *testing.T) {
	down := errors.New("store down")
	_, err := Resolver{Store: &nameSet{err: down}}.Resolve(context.Background(), "a")
	assert.ErrorIs(t, err, down)

	_, err = Resolver{Store: newNameSet()}.Resolve(context.Background(), "")
	assert.Error(t, err)
}
