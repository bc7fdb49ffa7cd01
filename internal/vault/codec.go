package vault

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// ErrDecryptionFailure covers every way an entry can fail to open: wrong
// passphrase, wrong name, corrupted or truncated blob, or a payload that does
// not decode to a valid record. Callers cannot tell these apart.
var ErrDecryptionFailure = errors.New("decryption failure")

// Encrypt serializes rec to JSON and seals it with AES-256-GCM under key.
// The result is base64(nonce ‖ ciphertext ‖ tag) with a fresh nonce per call.
func Encrypt(rec Record, key []byte) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validate record: %w", err)
	}
	plain, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}
	defer krypto.Wipe(plain)

	blob, err := krypto.SealAESGCM(key, plain, nil)
	if err != nil {
		return "", fmt.Errorf("seal record: %w", err)
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. Any failure yields ErrDecryptionFailure.
func Decrypt(blob string, key []byte) (Record, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return Record{}, ErrDecryptionFailure
	}
	plain, err := krypto.OpenAESGCM(key, raw, nil)
	if err != nil {
		return Record{}, ErrDecryptionFailure
	}
	defer krypto.Wipe(plain)

	var rec Record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return Record{}, ErrDecryptionFailure
	}
	if err := rec.Validate(); err != nil {
		return Record{}, ErrDecryptionFailure
	}
	return rec, nil
}

// Codec derives the per-entry key from the passphrase and the entry name and
// seals or opens records with it. The name is the PBKDF2 salt, so an entry
// must always be opened under the name it was sealed with.
type Codec struct {
	Iterations int
}

// NewCodec returns a Codec using iterations, or the default when iterations is zero.
func NewCodec(iterations int) Codec {
	if iterations == 0 {
		iterations = krypto.DefaultPBKDF2Iterations
	}
	return Codec{Iterations: iterations}
}

// Seal encrypts rec for the entry called name.
func (c Codec) Seal(passphrase []byte, name string, rec Record) (string, error) {
	key, err := krypto.DeriveVaultKey(passphrase, name, c.Iterations)
	if err != nil {
		return "", fmt.Errorf("derive vault key: %w", err)
	}
	defer krypto.Wipe(key)
	return Encrypt(rec, key)
}

// Open decrypts the blob stored under name.
func (c Codec) Open(passphrase []byte, name string, blob string) (Record, error) {
	key, err := krypto.DeriveVaultKey(passphrase, name, c.Iterations)
	if err != nil {
		return Record{}, fmt.Errorf("derive vault key: %w", err)
	}
	defer krypto.Wipe(key)
	return Decrypt(blob, key)
}

// Reseal opens blob under oldName and seals the same record under newName.
// It is the only sanctioned way to move an entry to a new name.
func (c Codec) Reseal(passphrase []byte, oldName, newName, blob string) (string, error) {
	rec, err := c.Open(passphrase, oldName, blob)
	if err != nil {
		return "", err
	}
	return c.Seal(passphrase, newName, rec)
}
