package generator

import (
	"context"
	"crypto/sha512"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hussein-Mazeh/PassForge/internal/engine"
	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// fakeEngine stands in for the Argon2 engine with SHA-512(passphrase ‖ 0 ‖ salt).
type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	salts   []string
	waitErr error
	err     error
	short   bool
}

func (f *fakeEngine) Wait(context.Context) error { return f.waitErr }

func (f *fakeEngine) Derive(_ context.Context, passphrase, salt []byte, _ krypto.Argon2Params) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.salts = append(f.salts, string(salt))
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	h := sha512.New()
	h.Write(passphrase)
	h.Write([]byte{0})
	h.Write(salt)
	sum := h.Sum(nil)
	if f.short {
		return sum[:8], nil
	}
	return sum, nil
}

func TestCharsetOrderAndExclusions(t *testing.T) {
	all, err := Charset(Flags{Lower: true, Upper: true, Digits: true, Symbols: true})
	require.NoError(t, err)
	assert.Equal(t, LowerAlphabet+UpperAlphabet+DigitAlphabet+SymbolAlphabet, all)
	assert.Len(t, all, 81)
	for _, c := range "Il1O0" {
		assert.NotContains(t, all, string(c))
	}

	seen := map[rune]bool{}
	for _, c := range all {
		assert.False(t, seen[c], "duplicate %q", c)
		seen[c] = true
	}

	digits, err := Charset(Flags{Digits: true})
	require.NoError(t, err)
	assert.Equal(t, "23456789", digits)

	_, err = Charset(Flags{})
	assert.ErrorIs(t, err, ErrEmptyCharset)
}

func TestSalt(t *testing.T) {
	assert.Equal(t, "example.com:default:default:00", Salt("example.com", "default", "default", "00"))
	assert.Equal(t, "a:b:c:d", NewParams("a").withFields("b", "c", "d").Salt())
	assert.Equal(t, ":::", Salt("", "", "", ""))
}

func (p DerivationParams) withFields(account, device, version string) DerivationParams {
	p.Account, p.Device, p.Version = account, device, version
	return p
}

func TestEncode(t *testing.T) {
	hash := []byte{0, 1, 2, 3, 4, 255}
	pw, err := Encode(hash, 6, "abc")
	require.NoError(t, err)
	// 255 % 3 == 0
	assert.Equal(t, "abcaba", pw)

	pw, err = Encode(hash, 2, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "xy", pw)

	_, err = Encode(hash, 7, "abc")
	assert.ErrorIs(t, err, ErrInsufficientEntropyBytes)

	_, err = Encode(hash, 3, "")
	assert.ErrorIs(t, err, ErrEmptyCharset)

	_, err = Encode(hash, 0, "abc")
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestValidate(t *testing.T) {
	p := NewParams("example.com")
	require.NoError(t, p.Validate())

	for _, n := range []int{0, 5, 65, -1} {
		q := p
		q.Length = n
		assert.ErrorIs(t, q.Validate(), ErrInvalidLength, "length %d", n)
	}
	for _, n := range []int{MinLength, MaxLength} {
		q := p
		q.Length = n
		assert.NoError(t, q.Validate(), "length %d", n)
	}

	q := p
	q.UseLower, q.UseUpper, q.UseDigits, q.UseSymbols = false, false, false, false
	assert.ErrorIs(t, q.Validate(), ErrEmptyCharset)

	q = p
	q.Service = "  "
	assert.Error(t, q.Validate())
}

func TestGenerateDeterministic(t *testing.T) {
	eng := &fakeEngine{}
	g := New(eng, krypto.DefaultArgon2Params())
	assert.Equal(t, Idle, g.State())

	params := NewParams("example.com")
	a, err := g.Generate(context.Background(), []byte("correcthorse"), params)
	require.NoError(t, err)
	b, err := g.Generate(context.Background(), []byte("correcthorse"), params)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
	assert.Equal(t, Done, g.State())
	assert.Equal(t, []string{"example.com:default:default:00", "example.com:default:default:00"}, eng.salts)

	charset, _ := Charset(params.Flags())
	for _, c := range a {
		assert.True(t, strings.ContainsRune(charset, c), "%q outside charset", c)
	}
}

func TestGenerateVersionRotates(t *testing.T) {
	g := New(&fakeEngine{}, krypto.DefaultArgon2Params())
	params := NewParams("example.com")
	a, err := g.Generate(context.Background(), []byte("correcthorse"), params)
	require.NoError(t, err)

	params.Version = "01"
	b, err := g.Generate(context.Background(), []byte("correcthorse"), params)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

// cheapCost keeps real Argon2id derivations fast in tests.
var cheapCost = krypto.Argon2Params{TimeCost: 1, MemoryKiB: 64, Parallelism: 1, OutputLen: 64}

func argon2Engine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(engine.Argon2id, engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, eng.Wait(context.Background()))
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

// Saved passwords depend on the alphabet, the salt layout and the encoding
// staying fixed; these values must never change.
func TestGenerateKnownAnswers(t *testing.T) {
	g := New(argon2Engine(t), cheapCost)
	ctx := context.Background()

	params := NewParams("example.com")
	pw, err := g.Generate(ctx, []byte("correcthorse"), params)
	require.NoError(t, err)
	assert.Equal(t, "!ke,]KpSZtVg^[m4", pw)

	params.Version = "01"
	pw, err = g.Generate(ctx, []byte("correcthorse"), params)
	require.NoError(t, err)
	assert.Equal(t, "]iMwo_{c:P,6F6B.", pw)
}

func TestGenerateSensitivity(t *testing.T) {
	g := New(argon2Engine(t), cheapCost)
	ctx := context.Background()
	passphrase := []byte("correcthorse")

	base := NewParams("example.com")
	want, err := g.Generate(ctx, passphrase, base)
	require.NoError(t, err)

	tests := map[string]struct {
		passphrase string
		change     func(*DerivationParams)
	}{
		"passphrase": {passphrase: "correcthorsf"},
		"service":    {change: func(p *DerivationParams) { p.Service = "example.org" }},
		"account":    {change: func(p *DerivationParams) { p.Account = "alice" }},
		"device":     {change: func(p *DerivationParams) { p.Device = "laptop" }},
		"version":    {change: func(p *DerivationParams) { p.Version = "01" }},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := base
			pw := passphrase
			if tc.change != nil {
				tc.change(&p)
			}
			if tc.passphrase != "" {
				pw = []byte(tc.passphrase)
			}
			got, err := g.Generate(ctx, pw, p)
			require.NoError(t, err)
			assert.Len(t, got, 16)
			assert.NotEqual(t, want, got)
		})
	}
}

func TestGenerateLongLengthsUnderDefaultOutput(t *testing.T) {
	cost := krypto.DefaultArgon2Params()
	cost.TimeCost, cost.MemoryKiB = 1, 64
	g := New(argon2Engine(t), cost)

	params := NewParams("example.com")
	for _, n := range []int{33, 40, MaxLength} {
		params.Length = n
		pw, err := g.Generate(context.Background(), []byte("pw"), params)
		require.NoError(t, err, "length %d", n)
		assert.Len(t, pw, n)
	}
}

func TestGenerateDigitsOnly(t *testing.T) {
	g := New(&fakeEngine{}, krypto.DefaultArgon2Params())
	params := NewParams("bank")
	params.UseLower, params.UseUpper, params.UseSymbols = false, false, false
	params.Length = 6

	pw, err := g.Generate(context.Background(), []byte("pw"), params)
	require.NoError(t, err)
	assert.Regexp(t, `^[2-9]{6}$`, pw)
}

func TestGenerateRejectsBeforeDerivation(t *testing.T) {
	eng := &fakeEngine{}
	g := New(eng, krypto.DefaultArgon2Params())

	params := NewParams("example.com")
	params.Length = 65
	_, err := g.Generate(context.Background(), []byte("pw"), params)
	assert.ErrorIs(t, err, ErrInvalidLength)

	params.Length = 16
	params.UseLower, params.UseUpper, params.UseDigits, params.UseSymbols = false, false, false, false
	_, err = g.Generate(context.Background(), []byte("pw"), params)
	assert.ErrorIs(t, err, ErrEmptyCharset)

	assert.Zero(t, eng.calls)
	assert.Equal(t, Idle, g.State())
}

func TestGenerateFailures(t *testing.T) {
	boom := errors.New("boom")

	g := New(&fakeEngine{waitErr: boom}, krypto.DefaultArgon2Params())
	_, err := g.Generate(context.Background(), []byte("pw"), NewParams("x"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, g.State())

	g = New(&fakeEngine{err: boom}, krypto.DefaultArgon2Params())
	_, err = g.Generate(context.Background(), []byte("pw"), NewParams("x"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, Failed, g.State())

	g = New(&fakeEngine{short: true}, krypto.DefaultArgon2Params())
	_, err = g.Generate(context.Background(), []byte("pw"), NewParams("x"))
	assert.ErrorIs(t, err, ErrInsufficientEntropyBytes)
	assert.Equal(t, Failed, g.State())
}
