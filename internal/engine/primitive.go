package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// Primitive is a memory-hard hash with a libargon2-style status return.
// Implementations fill out completely or return a non-zero code.
type Primitive interface {
	Hash(out, password, salt []byte, cost krypto.Argon2Params) int
}

// PrimitiveFunc adapts a function to Primitive.
type PrimitiveFunc func(out, password, salt []byte, cost krypto.Argon2Params) int

func (f PrimitiveFunc) Hash(out, password, salt []byte, cost krypto.Argon2Params) int {
	return f(out, password, salt, cost)
}

// Argon2id is the production primitive.
var Argon2id Primitive = PrimitiveFunc(krypto.Argon2idHash)

// selfTestCost keeps initialization cheap; it only proves the primitive runs.
var selfTestCost = krypto.Argon2Params{TimeCost: 1, MemoryKiB: 64, Parallelism: 1, OutputLen: 32}

// SelfTest returns a loader that hashes a fixed input twice and checks the
// primitive succeeds and is deterministic.
func SelfTest(p Primitive) func(context.Context) error {
	return func(ctx context.Context) error {
		pwd := []byte("self-test")
		salt := []byte("self-test:default:default:00")
		a := make([]byte, selfTestCost.OutputLen)
		b := make([]byte, selfTestCost.OutputLen)
		defer krypto.Wipe(a)
		defer krypto.Wipe(b)

		if code := p.Hash(a, pwd, salt, selfTestCost); code != krypto.Argon2OK {
			return &DerivationError{Code: code}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if code := p.Hash(b, pwd, salt, selfTestCost); code != krypto.Argon2OK {
			return &DerivationError{Code: code}
		}
		if !bytes.Equal(a, b) {
			return fmt.Errorf("self-test: primitive is not deterministic")
		}
		return nil
	}
}
