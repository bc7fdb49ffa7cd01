// Package site turns page URLs into service names and flags hosts that look
// like phishing attempts.
package site

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrInvalidHost is returned when no registrable domain can be found.
var ErrInvalidHost = errors.New("no registrable domain in host")

// Warning codes attached to a Site.
const (
	WarnHTTP        = "HTTP"
	WarnPunycode    = "PUNYCODE"
	WarnMixedScript = "MIXED_SCRIPT"
)

// Site is a parsed page location.
type Site struct {
	// Service is the registrable domain (eTLD+1), lowercase ASCII.
	Service string
	// Host is the full lowercase hostname as typed.
	Host     string
	Warnings []string
}

// Parse resolves raw, a URL or a bare host, to its registrable domain.
//
// Bare hosts are treated as https. The domain is computed on the ASCII form so
// that "bücher.example" and "xn--bcher-kva.example" yield the same service.
func Parse(raw string) (Site, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Site{}, fmt.Errorf("%w: empty", ErrInvalidHost)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return Site{}, fmt.Errorf("%w: %q", ErrInvalidHost, raw)
	}

	var warnings []string
	if !strings.EqualFold(u.Scheme, "https") {
		warnings = append(warnings, WarnHTTP)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	ascii := host
	if v, err := idna.Lookup.ToASCII(host); err == nil && v != "" {
		ascii = v
	}
	uni := host
	if v, err := idna.Lookup.ToUnicode(host); err == nil && v != "" {
		uni = v
	}

	etld1, err := publicsuffix.EffectiveTLDPlusOne(ascii)
	if err != nil {
		return Site{}, fmt.Errorf("%w: %q: %v", ErrInvalidHost, host, err)
	}

	if strings.Contains(ascii, "xn--") {
		warnings = append(warnings, WarnPunycode)
	}
	if hasMixedScript(uni) {
		warnings = append(warnings, WarnMixedScript)
	}

	return Site{Service: strings.ToLower(etld1), Host: host, Warnings: warnings}, nil
}

// Matches reports whether raw belongs to service, comparing registrable
// domains. A service that is not itself a domain never matches.
func Matches(service, raw string) bool {
	want, err := Parse(service)
	if err != nil {
		return false
	}
	got, err := Parse(raw)
	if err != nil {
		return false
	}
	return want.Service == got.Service
}

// Describe renders a warning code for people.
func Describe(code string) string {
	switch code {
	case WarnHTTP:
		return "page is not served over https"
	case WarnPunycode:
		return "host uses punycode (internationalized characters)"
	case WarnMixedScript:
		return "host mixes characters from different scripts"
	}
	return code
}

func hasMixedScript(host string) bool {
	scripts := map[string]struct{}{}
	for _, r := range host {
		s := script(r)
		if s == "" {
			continue
		}
		scripts[s] = struct{}{}
		if len(scripts) > 1 {
			return true
		}
	}
	return false
}

func script(r rune) string {
	switch {
	case unicode.In(r, unicode.Latin):
		return "latin"
	case unicode.In(r, unicode.Cyrillic):
		return "cyrillic"
	case unicode.In(r, unicode.Greek):
		return "greek"
	case unicode.In(r, unicode.Hiragana):
		return "hiragana"
	case unicode.In(r, unicode.Katakana):
		return "katakana"
	case unicode.In(r, unicode.Han):
		return "han"
	}
	return ""
}
