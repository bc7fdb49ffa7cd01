package generator

import "fmt"

// Encode maps the first length bytes of hash onto charset, one byte per
// character, using charset[hash[i] % len(charset)].
//
// The modulo introduces a small bias whenever len(charset) does not divide 256.
// It is kept because changing the mapping would change every existing password;
// a new mapping would have to be gated on DerivationParams.Version.
func Encode(hash []byte, length int, charset string) (string, error) {
	if charset == "" {
		return "", ErrEmptyCharset
	}
	if length < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	if len(hash) < length {
		return "", fmt.Errorf("%w: have %d bytes, need %d", ErrInsufficientEntropyBytes, len(hash), length)
	}

	n := len(charset)
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = charset[int(hash[i])%n]
	}
	return string(out), nil
}
