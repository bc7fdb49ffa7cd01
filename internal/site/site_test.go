package site

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw      string
		service  string
		warnings []string
	}{
		{"https://login.example.com/signin?next=/", "example.com", nil},
		{"accounts.google.co.uk", "google.co.uk", nil},
		{"HTTPS://WWW.Example.COM.", "example.com", nil},
		{"http://example.com:8080", "example.com", []string{WarnHTTP}},
		{"https://xn--bcher-kva.example", "xn--bcher-kva.example", []string{WarnPunycode}},
		{"https://bücher.example", "xn--bcher-kva.example", []string{WarnPunycode}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			s, err := Parse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.service, s.Service)
			assert.Equal(t, tt.warnings, s.Warnings)
		})
	}
}

func TestParseMixedScript(t *testing.T) {
	// Cyrillic "а" in an otherwise Latin label
	s, err := Parse("https://p\u0430ypal.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(s.Service, "xn--"))
	assert.True(t, strings.HasSuffix(s.Service, ".com"))
	assert.NotEqual(t, "paypal.com", s.Service)
	assert.Equal(t, []string{WarnPunycode, WarnMixedScript}, s.Warnings)
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "https://", "com"} {
		_, err := Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidHost, raw)
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("example.com", "https://login.example.com/x"))
	assert.True(t, Matches("Example.com", "example.com"))
	assert.False(t, Matches("example.com", "https://example.com.evil.net"))
	assert.False(t, Matches("paypal.com", "https://p\u0430ypal.com"))
	assert.False(t, Matches("my bank", "https://bank.example"))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "page is not served over https", Describe(WarnHTTP))
	assert.Equal(t, "OTHER", Describe("OTHER"))
}
