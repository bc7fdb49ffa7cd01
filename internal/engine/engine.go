// Package engine runs the memory-hard derivation primitive behind an explicit
// lifecycle (Uninitialized, Loading, Ready, Error) and a small worker pool so
// callers never hash on their own goroutine.
package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// State is the engine lifecycle position.
type State int32

const (
	Uninitialized State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const (
	DefaultInitTimeout = 10 * time.Second
	DefaultWorkers     = 1
)

// Option configures an Engine.
type Option func(*Engine)

// WithInitTimeout bounds initialization. Non-positive values keep the default.
func WithInitTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.initTimeout = d
		}
	}
}

// WithWorkers sets the number of background derivation workers.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger used for lifecycle and derivation events.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithLoader replaces the initialization step. The default runs SelfTest
// against the primitive.
func WithLoader(fn func(context.Context) error) Option {
	return func(e *Engine) { e.loader = fn }
}

// Engine owns the derivation primitive. Create one per process and share it.
type Engine struct {
	prim        Primitive
	loader      func(context.Context) error
	initTimeout time.Duration
	workers     int
	log         *slog.Logger

	jobs  chan job
	quit  chan struct{}
	ready chan struct{}
	group singleflight.Group
	wg    sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once

	fmu     sync.Mutex
	flights map[string]*flight

	mu    sync.RWMutex
	state State
	err   error
}

type job struct {
	passphrase []byte
	salt       []byte
	cost       krypto.Argon2Params
	done       chan result
}

type result struct {
	hash []byte
	err  error
}

// flight counts the callers attached to one request key. The hashes handed
// out by the group are wiped once the last of them has taken its copy.
type flight struct {
	refs int
	bufs [][]byte
}

func (f *flight) track(hash []byte) {
	for _, b := range f.bufs {
		if len(b) > 0 && &b[0] == &hash[0] {
			return
		}
	}
	f.bufs = append(f.bufs, hash)
}

// New returns an Uninitialized engine around p.
func New(p Primitive, opts ...Option) *Engine {
	e := &Engine{
		prim:        p,
		initTimeout: DefaultInitTimeout,
		workers:     DefaultWorkers,
		log:         slog.Default(),
		jobs:        make(chan job),
		quit:        make(chan struct{}),
		ready:       make(chan struct{}),
		flights:     map[string]*flight{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loader == nil {
		e.loader = SelfTest(p)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Err returns the initialization error once the engine is in Error.
func (e *Engine) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

func (e *Engine) setState(s State, err error) {
	e.mu.Lock()
	prev := e.state
	e.state, e.err = s, err
	e.mu.Unlock()
	e.logState(prev, s, err)
}

func (e *Engine) logState(prev, s State, err error) {
	if err != nil {
		e.log.Error("engine state", "from", prev.String(), "to", s.String(), "err", err)
		return
	}
	e.log.Debug("engine state", "from", prev.String(), "to", s.String())
}

// Start begins initialization in the background. Only the first call has an
// effect. Cancelling ctx does not abort loading; the init timeout does.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.setState(Loading, nil)
		go e.load(context.WithoutCancel(ctx))
	})
}

func (e *Engine) load(ctx context.Context) {
	defer close(e.ready)

	ctx, cancel := context.WithTimeout(ctx, e.initTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- e.loader(ctx) }()

	var err error
	select {
	case err = <-done:
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrEngineLoadTimeout
		}
	case <-ctx.Done():
		err = ErrEngineLoadTimeout
	}
	e.finishLoad(err, time.Since(start))
}

// finishLoad moves a loading engine to Ready or Error. Close holds e.mu while
// closing quit, so workers are never added once Close has begun.
func (e *Engine) finishLoad(err error, elapsed time.Duration) {
	e.mu.Lock()
	select {
	case <-e.quit:
		e.mu.Unlock()
		return
	default:
	}

	next := Ready
	if err != nil {
		next = Error
	} else {
		for i := 0; i < e.workers; i++ {
			e.wg.Add(1)
			go e.worker()
		}
	}
	prev := e.state
	e.state, e.err = next, err
	e.mu.Unlock()

	if err == nil {
		e.log.Info("derivation engine ready", "workers", e.workers, "elapsed", elapsed)
	}
	e.logState(prev, next, err)
}

// Wait starts the engine if needed and blocks until it leaves Loading or ctx
// is done. It returns nil only when the engine is Ready.
func (e *Engine) Wait(ctx context.Context) error {
	e.Start(ctx)
	select {
	case <-e.ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.state == Ready:
		return nil
	case e.err != nil:
		return e.err
	}
	return ErrEngineUnavailable
}

// Derive computes cost.OutputLen bytes from passphrase and salt on a worker.
// It fails with ErrEngineUnavailable unless the engine is Ready. Identical
// concurrent requests share one computation. ctx bounds how long this caller
// waits; the shared computation keeps running for the other callers and is
// only abandoned when the engine closes.
//
// The returned slice belongs to the caller, who should wipe it after use.
func (e *Engine) Derive(ctx context.Context, passphrase, salt []byte, cost krypto.Argon2Params) ([]byte, error) {
	if e.State() != Ready {
		return nil, ErrEngineUnavailable
	}

	key := requestKey(passphrase, salt, cost)
	e.join(key)
	ch := e.group.DoChan(key, func() (any, error) {
		return e.dispatch(context.WithoutCancel(ctx), passphrase, salt, cost)
	})
	select {
	case r := <-ch:
		return e.leave(key, r, true)
	case <-ctx.Done():
		go func() { _, _ = e.leave(key, <-ch, false) }()
		return nil, ctx.Err()
	}
}

func (e *Engine) join(key string) {
	e.fmu.Lock()
	defer e.fmu.Unlock()
	f := e.flights[key]
	if f == nil {
		f = &flight{}
		e.flights[key] = f
	}
	f.refs++
}

// leave detaches a caller from the flight for key, copying the hash out when
// keep is set. The last caller to leave wipes every hash the flight produced.
func (e *Engine) leave(key string, r singleflight.Result, keep bool) ([]byte, error) {
	e.fmu.Lock()
	defer e.fmu.Unlock()

	f := e.flights[key]
	var out []byte
	if hash, ok := r.Val.([]byte); ok && r.Err == nil && len(hash) > 0 {
		if keep {
			out = bytes.Clone(hash)
		}
		f.track(hash)
	}
	f.refs--
	if f.refs == 0 {
		for _, b := range f.bufs {
			krypto.Wipe(b)
		}
		delete(e.flights, key)
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return out, nil
}

func (e *Engine) dispatch(ctx context.Context, passphrase, salt []byte, cost krypto.Argon2Params) ([]byte, error) {
	j := job{passphrase: passphrase, salt: salt, cost: cost, done: make(chan result, 1)}
	select {
	case e.jobs <- j:
	case <-e.quit:
		return nil, ErrEngineUnavailable
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-j.done
	return r.hash, r.err
}

func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quit:
			return
		case j := <-e.jobs:
			j.done <- e.run(j)
		}
	}
}

func (e *Engine) run(j job) result {
	var sc krypto.Scoped
	defer sc.Release()

	pwd := sc.Copy(j.passphrase)
	salt := sc.Copy(j.salt)
	out := sc.Alloc(int(j.cost.OutputLen))

	start := time.Now()
	if code := e.prim.Hash(out, pwd, salt, j.cost); code != krypto.Argon2OK {
		e.log.Warn("derivation failed", "status", code, "cost", j.cost.String())
		return result{err: &DerivationError{Code: code}}
	}
	e.log.Debug("derivation complete", "cost", j.cost.String(), "elapsed", time.Since(start))
	return result{hash: bytes.Clone(out)}
}

// Close stops the workers and returns the engine to Uninitialized. A closed
// engine cannot be restarted.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		close(e.quit)
		e.mu.Unlock()
		e.wg.Wait()
		e.setState(Uninitialized, nil)
	})
	return nil
}

// requestKey identifies a derivation for deduplication. It never leaves the process.
func requestKey(passphrase, salt []byte, cost krypto.Argon2Params) string {
	h := sha256.New()
	var n [8]byte
	for _, part := range [][]byte{passphrase, salt} {
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write(part)
	}
	h.Write([]byte(cost.String()))
	return hex.EncodeToString(h.Sum(nil))
}
