package auth

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/nbutton23/zxcvbn-go"
)

const specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_{|}~`"

// DefaultMinScore is the zxcvbn score below which a passphrase is flagged weak.
const DefaultMinScore = 3

// CheckOptions tunes CheckPassphrase.
type CheckOptions struct {
	// MinScore is the lowest acceptable zxcvbn score (0-4).
	MinScore int
	// UserInputs are strings the passphrase should not be built from, such
	// as service names.
	UserInputs []string
	// HIBP enables the breached-password range lookup when set.
	HIBP *HIBPClient
}

// DefaultCheckOptions returns MinScore 3 without the network lookup.
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{MinScore: DefaultMinScore}
}

// Advice is an advisory assessment of a master passphrase. It never blocks
// use: the passphrase is an input to every derived password, so refusing one
// would lock a user out of passwords they already use.
type Advice struct {
	Score     int
	Entropy   float64
	CrackTime string
	Warnings  []string
	Breached  bool
	Seen      int
	MinScore  int
}

// Weak reports whether the passphrase scored below MinScore or was found in a breach.
func (a Advice) Weak() bool {
	return a.Score < a.MinScore || a.Breached
}

// CheckPassphrase scores pw with zxcvbn, applies the composition hints, and
// optionally consults HIBP. A lookup failure is returned alongside the
// offline advice, which is still valid.
func CheckPassphrase(ctx context.Context, pw string, opts CheckOptions) (Advice, error) {
	if opts.MinScore == 0 {
		opts.MinScore = DefaultMinScore
	}

	m := zxcvbn.PasswordStrength(pw, opts.UserInputs)
	adv := Advice{
		Score:     m.Score,
		Entropy:   m.Entropy,
		CrackTime: m.CrackTimeDisplay,
		Warnings:  compositionWarnings(pw),
		MinScore:  opts.MinScore,
	}
	if adv.Score < opts.MinScore {
		adv.Warnings = append([]string{fmt.Sprintf("strength score %d/4 is below %d/4", adv.Score, opts.MinScore)}, adv.Warnings...)
	}

	if opts.HIBP == nil || pw == "" {
		return adv, nil
	}
	res, err := opts.HIBP.Check(ctx, pw)
	if err != nil {
		return adv, fmt.Errorf("breach lookup: %w", err)
	}
	if res.Found {
		adv.Breached = true
		adv.Seen = res.Count
		adv.Warnings = append(adv.Warnings, fmt.Sprintf("seen %d times in known breaches", res.Count))
	}
	return adv, nil
}

// compositionWarnings lists the classic composition rules pw misses.
func compositionWarnings(pw string) []string {
	var out []string
	if len([]rune(pw)) < 12 {
		out = append(out, "shorter than 12 characters")
	}
	if !hasUpper(pw) {
		out = append(out, "no uppercase letter")
	}
	if !hasDigit(pw) {
		out = append(out, "no digit")
	}
	if !hasSpecial(pw) {
		out = append(out, "no special character")
	}
	return out
}

func hasUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func hasSpecial(s string) bool {
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) || unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
