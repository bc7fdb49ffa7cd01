package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	httpUserAgent      = "passforge/1"
)

// HTTPConfig describes a remote entries endpoint such as
// http://127.0.0.1:8787/api/entries.
type HTTPConfig struct {
	URL string
	// DeleteBy is the key the remote store accepts on DELETE: ByID or ByName.
	DeleteBy RefKind
	Timeout  time.Duration
	// Client overrides the default client, mainly for tests.
	Client *http.Client
}

// HTTPStore talks to a remote vault store over its JSON API.
type HTTPStore struct {
	base     *url.URL
	deleteBy RefKind
	client   *http.Client
}

// NewHTTPStore validates cfg and returns a client. It does not contact the server.
func NewHTTPStore(cfg HTTPConfig) (*HTTPStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("store url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse store url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store url must be http or https, got %q", u.Scheme)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultHTTPTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPStore{base: u, deleteBy: cfg.DeleteBy, client: client}, nil
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type listResponse struct {
	Entries []Entry `json:"entries"`
}

type upsertRequest struct {
	Name          string `json:"name"`
	EncryptedData string `json:"encryptedData"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// mutate performs a POST or DELETE and requires the remote to confirm it.
func (s *HTTPStore) mutate(ctx context.Context, method string, query url.Values, body any) error {
	var out successResponse
	if err := s.do(ctx, method, query, body, &out); err != nil {
		return err
	}
	if !out.Success {
		op := strings.ToLower(method) + " entries"
		if out.Error != "" {
			return fmt.Errorf("%s: %w: %s", op, ErrStoreUnavailable, out.Error)
		}
		return fmt.Errorf("%s: %w: remote reported failure", op, ErrStoreUnavailable)
	}
	return nil
}

func (s *HTTPStore) endpoint(query url.Values) string {
	u := *s.base
	u.RawQuery = query.Encode()
	return u.String()
}

func (s *HTTPStore) do(ctx context.Context, method string, query url.Values, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint(query), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", httpUserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return unavailable(strings.ToLower(method)+" entries", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, e.Error)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: %s", ErrInvalidEntry, e.Error)
		}
		return fmt.Errorf("%s entries: %w: unexpected status %s", strings.ToLower(method), ErrStoreUnavailable, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unavailable("decode response", err)
	}
	return nil
}

func (s *HTTPStore) Exists(ctx context.Context, name string) (bool, error) {
	var out existsResponse
	if err := s.do(ctx, http.MethodGet, url.Values{"name": {name}}, nil, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

func (s *HTTPStore) List(ctx context.Context) ([]Entry, error) {
	var out listResponse
	if err := s.do(ctx, http.MethodGet, nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Entries == nil {
		return []Entry{}, nil
	}
	return out.Entries, nil
}

func (s *HTTPStore) Upsert(ctx context.Context, name, encryptedData string) error {
	if err := validateUpsert(name, encryptedData); err != nil {
		return err
	}
	return s.mutate(ctx, http.MethodPost, nil, upsertRequest{Name: name, EncryptedData: encryptedData})
}

// Delete removes the entry addressed by ref. When ref uses a key the remote
// does not accept, the entry is looked up first and deleted by the other key.
func (s *HTTPStore) Delete(ctx context.Context, ref Ref) error {
	if ref.Value == "" {
		return fmt.Errorf("%w: empty %s", ErrNotFound, ref.Kind)
	}
	if ref.Kind != s.deleteBy {
		translated, err := s.translate(ctx, ref)
		if err != nil {
			return err
		}
		ref = translated
	}
	return s.mutate(ctx, http.MethodDelete, url.Values{ref.Kind.String(): {ref.Value}}, nil)
}

func (s *HTTPStore) translate(ctx context.Context, ref Ref) (Ref, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return Ref{}, err
	}
	for _, e := range entries {
		if !matches(e, ref) {
			continue
		}
		if s.deleteBy == ByName {
			return NameRef(e.Name), nil
		}
		return IDRef(e.ID), nil
	}
	return Ref{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
