package vault

import (
	"fmt"

	"github.com/Hussein-Mazeh/PassForge/internal/generator"
	"github.com/Hussein-Mazeh/PassForge/krypto"
)

// EncodingModulo is the byte-to-character mapping implemented by generator.Encode.
const EncodingModulo = 1

// CurrentEncoding is written into every new record.
const CurrentEncoding = EncodingModulo

// Record is the plaintext sealed inside a vault entry. The derivation params
// are flattened at the top level so records written without Cost and
// Encoding still decode.
type Record struct {
	generator.DerivationParams

	// Cost is the Argon2id cost the password was generated with. Nil means
	// the record predates cost recording and the documented default applies.
	Cost *krypto.Argon2Params `json:"cost,omitempty"`
	// Encoding selects the password encoder. Zero is read as EncodingModulo.
	Encoding int `json:"encoding,omitempty"`
}

// NewRecord wraps params generated under cost.
func NewRecord(params generator.DerivationParams, cost krypto.Argon2Params) Record {
	c := cost
	return Record{DerivationParams: params, Cost: &c, Encoding: CurrentEncoding}
}

// Params returns the derivation params held by r.
func (r Record) Params() generator.DerivationParams {
	return r.DerivationParams
}

// CostOr returns the recorded cost, or def when none was recorded.
func (r Record) CostOr(def krypto.Argon2Params) krypto.Argon2Params {
	if r.Cost == nil {
		return def
	}
	return *r.Cost
}

// Validate checks r after decryption.
func (r Record) Validate() error {
	if err := r.DerivationParams.Validate(); err != nil {
		return err
	}
	if r.Encoding < 0 || r.Encoding > CurrentEncoding {
		return fmt.Errorf("unsupported encoding %d", r.Encoding)
	}
	if r.Cost != nil && r.Cost.OutputLen < uint32(r.Length) {
		return fmt.Errorf("recorded output length %d shorter than password length %d", r.Cost.OutputLen, r.Length)
	}
	return nil
}
