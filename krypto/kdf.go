package krypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2Version is the Argon2 revision implemented by golang.org/x/crypto/argon2 (0x13).
const Argon2Version = argon2.Version

// Status codes mirror the libargon2 reference implementation so callers that
// report DerivationFailure(code) see the same numbers a native binding would return.
const (
	Argon2OK              = 0
	Argon2OutputTooShort  = -2
	Argon2OutputTooLong   = -3
	Argon2PwdTooLong      = -5
	Argon2SaltTooShort    = -6
	Argon2SaltTooLong     = -7
	Argon2TimeTooSmall    = -12
	Argon2MemoryTooLittle = -14
	Argon2LanesTooFew     = -16
)

const (
	argon2MinOutLen  = 4
	argon2MinSaltLen = 8
	maxUint32        = 1<<32 - 1
)

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	TimeCost    uint32 `json:"t"`
	MemoryKiB   uint32 `json:"m"`
	Parallelism uint8  `json:"p"`
	OutputLen   uint32 `json:"outLen"`
}

// DefaultArgon2Params returns the documented password-derivation cost:
// t=3, m=64 MiB, p=1, 64-byte output. The output length covers the longest
// password the generator emits.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		TimeCost:    3,
		MemoryKiB:   64 * 1024,
		Parallelism: 1,
		OutputLen:   64,
	}
}

// String renders the parameters in the PHC-like form used in logs.
func (p Argon2Params) String() string {
	return fmt.Sprintf("argon2id v=%d t=%d,m=%d,p=%d len=%d", Argon2Version, p.TimeCost, p.MemoryKiB, p.Parallelism, p.OutputLen)
}

// Argon2idHash fills out with Argon2id(password, salt) and returns a status code.
// The output length is len(out). A non-zero status leaves out untouched.
func Argon2idHash(out, password, salt []byte, p Argon2Params) int {
	if code := checkArgon2(len(out), len(password), len(salt), p); code != Argon2OK {
		return code
	}
	key := argon2.IDKey(password, salt, p.TimeCost, p.MemoryKiB, p.Parallelism, uint32(len(out)))
	copy(out, key)
	Wipe(key)
	return Argon2OK
}

func checkArgon2(outLen, pwdLen, saltLen int, p Argon2Params) int {
	switch {
	case outLen < argon2MinOutLen:
		return Argon2OutputTooShort
	case uint64(outLen) > maxUint32:
		return Argon2OutputTooLong
	case uint64(pwdLen) > maxUint32:
		return Argon2PwdTooLong
	case saltLen < argon2MinSaltLen:
		return Argon2SaltTooShort
	case uint64(saltLen) > maxUint32:
		return Argon2SaltTooLong
	case p.TimeCost < 1:
		return Argon2TimeTooSmall
	case p.Parallelism < 1:
		return Argon2LanesTooFew
	case p.MemoryKiB < 8*uint32(p.Parallelism):
		return Argon2MemoryTooLittle
	}
	return Argon2OK
}

// DeriveKeyArgon2id derives p.OutputLen bytes using Argon2id with the provided parameters.
func DeriveKeyArgon2id(password, salt []byte, p Argon2Params) ([]byte, error) {
	out := make([]byte, p.OutputLen)
	if code := Argon2idHash(out, password, salt, p); code != Argon2OK {
		return nil, fmt.Errorf("argon2id: status %d", code)
	}
	return out, nil
}
