package generator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// State is the lifecycle position of a Generator.
type State int

const (
	Idle State = iota
	EngineLoading
	Ready
	Generating
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case EngineLoading:
		return "engine-loading"
	case Ready:
		return "ready"
	case Generating:
		return "generating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Deriver is the slice of the derivation engine the generator needs.
type Deriver interface {
	// Wait blocks until the engine is ready or has failed to initialize.
	Wait(ctx context.Context) error
	Derive(ctx context.Context, passphrase, salt []byte, cost krypto.Argon2Params) ([]byte, error)
}

// Generator turns a passphrase plus DerivationParams into a password.
// It is safe for concurrent use; State reports the most recent transition.
type Generator struct {
	engine Deriver
	cost   krypto.Argon2Params

	mu    sync.Mutex
	state State
}

// New returns a Generator that derives with cost. OutputLen must be at least
// MaxLength for every valid length to be encodable.
func New(engine Deriver, cost krypto.Argon2Params) *Generator {
	return &Generator{engine: engine, cost: cost}
}

// Cost returns the Argon2 cost the generator uses for new passwords.
func (g *Generator) Cost() krypto.Argon2Params { return g.cost }

// State returns the current lifecycle state.
func (g *Generator) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Generator) set(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

// Generate derives the password for params using the generator's cost.
func (g *Generator) Generate(ctx context.Context, passphrase []byte, params DerivationParams) (string, error) {
	return g.GenerateWith(ctx, passphrase, params, g.cost)
}

// GenerateWith derives the password for params under an explicit cost, which
// is how records saved under an older cost are reproduced.
//
// Parameters are validated before the engine is touched, so an invalid
// length never costs a derivation. Once derivation has started it runs to
// completion; ctx only bounds waiting for the engine and a worker slot.
func (g *Generator) GenerateWith(ctx context.Context, passphrase []byte, params DerivationParams, cost krypto.Argon2Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", err
	}
	charset, err := Charset(params.Flags())
	if err != nil {
		return "", err
	}
	if len(passphrase) == 0 {
		return "", errors.New("passphrase is required")
	}

	if g.State() == Idle {
		g.set(EngineLoading)
	}
	if err := g.engine.Wait(ctx); err != nil {
		g.set(Failed)
		return "", err
	}
	g.set(Ready)

	g.set(Generating)
	salt := []byte(params.Salt())
	hash, err := g.engine.Derive(ctx, passphrase, salt, cost)
	if err != nil {
		g.set(Failed)
		return "", err
	}
	defer krypto.Wipe(hash)

	pw, err := Encode(hash, params.Length, charset)
	if err != nil {
		g.set(Failed)
		return "", err
	}
	g.set(Done)
	return pw, nil
}
