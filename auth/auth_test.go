package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SHA1("password") = 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8
const passwordSuffix = "1E4C9B93F3F0682250B6CF8331B7EE68FD8"

func rangeServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/range/5BAA6" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHIBPFound(t *testing.T) {
	srv := rangeServer(t, "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n"+strings.ToLower(passwordSuffix)+":3861493\r\n")
	c := &HIBPClient{BaseURL: srv.URL + "/range/", Client: srv.Client()}

	res, err := c.Check(context.Background(), "password")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, 3861493, res.Count)
}

func TestHIBPNotFoundAndPadding(t *testing.T) {
	srv := rangeServer(t, "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n"+passwordSuffix+":0\r\n")
	c := &HIBPClient{BaseURL: srv.URL + "/range/", Client: srv.Client()}

	res, err := c.Check(context.Background(), "password")
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestHIBPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := &HIBPClient{BaseURL: srv.URL + "/range/"}
	_, err := c.Check(context.Background(), "password")
	assert.ErrorContains(t, err, "unexpected status")

	bad := rangeServer(t, passwordSuffix+":lots\n")
	c = &HIBPClient{BaseURL: bad.URL + "/range/"}
	_, err = c.Check(context.Background(), "password")
	assert.ErrorContains(t, err, "hibp parse count")
}

func TestCheckPassphraseWeak(t *testing.T) {
	srv := rangeServer(t, passwordSuffix+":42\n")
	opts := DefaultCheckOptions()
	opts.HIBP = &HIBPClient{BaseURL: srv.URL + "/range/"}

	adv, err := CheckPassphrase(context.Background(), "password", opts)
	require.NoError(t, err)
	assert.True(t, adv.Weak())
	assert.Less(t, adv.Score, DefaultMinScore)
	assert.True(t, adv.Breached)
	assert.Equal(t, 42, adv.Seen)
	assert.Contains(t, adv.Warnings, "no uppercase letter")
	assert.Contains(t, adv.Warnings, "seen 42 times in known breaches")
}

func TestCheckPassphraseStrongOffline(t *testing.T) {
	adv, err := CheckPassphrase(context.Background(), "Tq7#vX9!mR2$wL5@kP8&", DefaultCheckOptions())
	require.NoError(t, err)
	assert.False(t, adv.Weak())
	assert.GreaterOrEqual(t, adv.Score, DefaultMinScore)
	assert.Empty(t, adv.Warnings)
	assert.NotEmpty(t, adv.CrackTime)
}

func TestCheckPassphraseLookupFailureKeepsAdvice(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	opts := DefaultCheckOptions()
	opts.HIBP = &HIBPClient{BaseURL: srv.URL + "/range/"}

	adv, err := CheckPassphrase(context.Background(), "password", opts)
	assert.Error(t, err)
	assert.True(t, adv.Weak())
}

func TestSuggestPassphrase(t *testing.T) {
	p, err := SuggestPassphrase(DefaultSuggestWords)
	require.NoError(t, err)
	words := strings.Split(p, "-")
	assert.Len(t, words, DefaultSuggestWords)
	for _, w := range words {
		assert.NotEmpty(t, w)
	}

	q, err := SuggestPassphrase(DefaultSuggestWords)
	require.NoError(t, err)
	assert.NotEqual(t, p, q)

	_, err = SuggestPassphrase(2)
	assert.Error(t, err)
}
