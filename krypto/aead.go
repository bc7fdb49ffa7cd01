package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// GCMNonceSize is the nonce length prefixed to every sealed blob.
const GCMNonceSize = 12

// ErrOpen is returned by OpenAESGCM for any malformed or unauthenticated input.
// It deliberately carries no detail about which check failed.
var ErrOpen = errors.New("aes-gcm: message authentication failed")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, errors.New("aes-gcm requires a 32-byte key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// SealAESGCM encrypts plaintext with AES-256-GCM under a fresh random nonce
// and returns nonce ‖ ciphertext ‖ tag.
func SealAESGCM(key, plaintext, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, GCMNonceSize, GCMNonceSize+len(plaintext)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, aad), nil
}

// OpenAESGCM reverses SealAESGCM. Every failure after key validation is ErrOpen.
func OpenAESGCM(key, blob, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(blob) < GCMNonceSize+gcm.Overhead() {
		return nil, ErrOpen
	}

	plaintext, err := gcm.Open(nil, blob[:GCMNonceSize], blob[GCMNonceSize:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}
