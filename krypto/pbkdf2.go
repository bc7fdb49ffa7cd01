package krypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// VaultKeyLen is the size of the AES-256 key protecting a vault record.
	VaultKeyLen = 32
	// MinPBKDF2Iterations is the floor accepted for vault key derivation.
	MinPBKDF2Iterations = 1000
	// DefaultPBKDF2Iterations is the iteration count used unless configured otherwise.
	DefaultPBKDF2Iterations = 210_000
)

// DeriveVaultKey derives the symmetric key for one vault entry with
// PBKDF2-HMAC-SHA256, using the entry name as salt.
//
// The name is the salt, so a record can only be opened under the name it was
// sealed with. Renaming an entry requires re-encrypting it.
func DeriveVaultKey(passphrase []byte, entryName string, iterations int) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, errors.New("passphrase is required")
	}
	if entryName == "" {
		return nil, errors.New("entry name is required")
	}
	if iterations < MinPBKDF2Iterations {
		return nil, fmt.Errorf("pbkdf2 iterations must be >= %d", MinPBKDF2Iterations)
	}
	return pbkdf2.Key(passphrase, []byte(entryName), iterations, VaultKeyLen, sha256.New), nil
}
