package krypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapParams() Argon2Params {
	return Argon2Params{TimeCost: 1, MemoryKiB: 64, Parallelism: 1, OutputLen: 32}
}

func TestArgon2idHashDeterministic(t *testing.T) {
	p := cheapParams()
	a := make([]byte, 32)
	b := make([]byte, 32)

	require.Equal(t, Argon2OK, Argon2idHash(a, []byte("pass"), []byte("somesaltvalue"), p))
	require.Equal(t, Argon2OK, Argon2idHash(b, []byte("pass"), []byte("somesaltvalue"), p))
	assert.Equal(t, a, b)
	assert.NotEqual(t, make([]byte, 32), a)

	c := make([]byte, 32)
	require.Equal(t, Argon2OK, Argon2idHash(c, []byte("pass"), []byte("othersaltvalue"), p))
	assert.NotEqual(t, a, c)
}

func TestArgon2idHashStatusCodes(t *testing.T) {
	good := cheapParams()
	cases := []struct {
		name   string
		out    int
		salt   string
		params Argon2Params
		want   int
	}{
		{"output too short", 3, "saltsalt", good, Argon2OutputTooShort},
		{"salt too short", 32, "short", good, Argon2SaltTooShort},
		{"time too small", 32, "saltsalt", Argon2Params{TimeCost: 0, MemoryKiB: 64, Parallelism: 1}, Argon2TimeTooSmall},
		{"no lanes", 32, "saltsalt", Argon2Params{TimeCost: 1, MemoryKiB: 64, Parallelism: 0}, Argon2LanesTooFew},
		{"memory too little", 32, "saltsalt", Argon2Params{TimeCost: 1, MemoryKiB: 15, Parallelism: 2}, Argon2MemoryTooLittle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := make([]byte, tc.out)
			assert.Equal(t, tc.want, Argon2idHash(out, []byte("pw"), []byte(tc.salt), tc.params))
			assert.Equal(t, make([]byte, tc.out), out, "output must stay untouched on failure")
		})
	}
}

func TestDeriveKeyArgon2id(t *testing.T) {
	key, err := DeriveKeyArgon2id([]byte("pw"), []byte("saltsalt"), cheapParams())
	require.NoError(t, err)
	assert.Len(t, key, 32)

	_, err = DeriveKeyArgon2id([]byte("pw"), []byte("salt"), cheapParams())
	assert.EqualError(t, err, "argon2id: status -6")
}

func TestDefaultArgon2Params(t *testing.T) {
	p := DefaultArgon2Params()
	assert.Equal(t, uint32(3), p.TimeCost)
	assert.Equal(t, uint32(65536), p.MemoryKiB)
	assert.Equal(t, uint8(1), p.Parallelism)
	assert.Equal(t, uint32(64), p.OutputLen)
	assert.Equal(t, "argon2id v=19 t=3,m=65536,p=1 len=64", p.String())
}

func TestDeriveVaultKey(t *testing.T) {
	key, err := DeriveVaultKey([]byte("password"), "salt", 4096)
	require.NoError(t, err)
	assert.Equal(t, "c5e478d59288c841aa530db6845c4c8d962893a001ce4e11a4963873aa98134a", hex.EncodeToString(key))

	key, err = DeriveVaultKey([]byte("correcthorse"), "example.com", 1000)
	require.NoError(t, err)
	assert.Equal(t, "ddd823d86c5d2fe13e393c16f622278a23584081edbebc26196a1613b2200e32", hex.EncodeToString(key))
}

func TestDeriveVaultKeyRejectsBadInput(t *testing.T) {
	_, err := DeriveVaultKey(nil, "name", 1000)
	assert.Error(t, err)
	_, err = DeriveVaultKey([]byte("pw"), "", 1000)
	assert.Error(t, err)
	_, err = DeriveVaultKey([]byte("pw"), "name", 999)
	assert.Error(t, err)
}
