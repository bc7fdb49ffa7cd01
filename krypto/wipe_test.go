package krypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopedReleaseWipesEverything(t *testing.T) {
	var s Scoped
	a := s.Copy([]byte("secret"))
	b := s.Alloc(4)
	copy(b, "abcd")

	s.Release()
	assert.Equal(t, make([]byte, 6), a)
	assert.Equal(t, make([]byte, 4), b)

	s.Release()
}

func TestWipe(t *testing.T) {
	buf := []byte{1, 2, 3}
	Wipe(buf)
	assert.Equal(t, []byte{0, 0, 0}, buf)
	Wipe(nil)
}
