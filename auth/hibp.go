package auth

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultHIBPURL = "https://api.pwnedpasswords.com/range/"
	hibpUserAgent  = "passforge/1"
)

// HIBPResult captures whether a password hash suffix was found in the HIBP dataset.
type HIBPResult struct {
	Found bool
	Count int
}

// HIBPClient queries the Pwned Passwords range API.
type HIBPClient struct {
	// BaseURL ends in "/range/"; the 5-hex prefix is appended to it.
	BaseURL string
	Client  *http.Client
}

// NewHIBPClient returns a client for the public API with a short timeout.
func NewHIBPClient() *HIBPClient {
	return &HIBPClient{
		BaseURL: DefaultHIBPURL,
		Client:  &http.Client{Timeout: 4 * time.Second},
	}
}

// Check queries the range API using k-anonymity: only the first five hex
// characters of SHA1(pw) leave the machine. The response is streamed line
// by line ("SUFFIX:COUNT") and compared case-insensitively with the local
// suffix. Network and HTTP errors are returned wrapped; the caller decides
// whether to fail open or closed.
func (c *HIBPClient) Check(ctx context.Context, pw string) (HIBPResult, error) {
	var result HIBPResult

	sum := sha1.Sum([]byte(pw))
	hashHex := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix := hashHex[:5]
	suffix := hashHex[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+prefix, nil)
	if err != nil {
		return result, fmt.Errorf("hibp request: %w", err)
	}
	req.Header.Set("User-Agent", hibpUserAgent)
	req.Header.Set("Add-Padding", "true")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return result, fmt.Errorf("hibp query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("hibp query: unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineSuffix, countStr, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(lineSuffix, suffix) {
			continue
		}

		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return result, fmt.Errorf("hibp parse count: %w", err)
		}
		// padding rows carry a zero count
		if count == 0 {
			continue
		}

		result.Found = true
		result.Count = count
		return result, nil
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("hibp read response: %w", err)
	}
	return result, nil
}
