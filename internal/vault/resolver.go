package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// DefaultMaxSuffix caps the " (n)" probe sequence.
const DefaultMaxSuffix = 100

// ErrNameSpaceExhausted is returned when base and every suffix up to the cap are taken.
var ErrNameSpaceExhausted = errors.New("no free entry name")

// Prober reports whether an entry name is taken.
type Prober interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Resolver picks a free entry name by probing the store.
//
// Probing and the later write are not atomic. Two writers resolving the same
// base at once can pick the same name; the store's uniqueness constraint on
// name is what actually prevents duplicates.
type Resolver struct {
	Store     Prober
	MaxSuffix int
	Log       *slog.Logger
}

// Resolve returns base if it is free, otherwise the first free "base (n)"
// for n = 1..MaxSuffix. It has no side effects, so retrying against an
// unchanged store returns the same name.
func (r Resolver) Resolve(ctx context.Context, base string) (string, error) {
	if base == "" {
		return "", errors.New("base name is required")
	}
	max := r.MaxSuffix
	if max <= 0 {
		max = DefaultMaxSuffix
	}

	for n := 0; n <= max; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		taken, err := r.Store.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("probe name %q: %w", name, err)
		}
		if !taken {
			r.logger().Debug("resolved entry name", "base", base, "name", name, "probes", n+1)
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q and %d suffixes taken", ErrNameSpaceExhausted, base, max)
}

func (r Resolver) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
