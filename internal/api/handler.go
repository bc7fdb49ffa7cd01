// Package api serves the vault entries JSON API over any store.Store.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Hussein-Mazeh/PassForge/store"
)

// Path is where the entries endpoint is mounted.
const Path = "/api/entries"

const maxBodyBytes = 1 << 20

// Handler serves GET, POST and DELETE on the entries collection.
type Handler struct {
	store store.Store
	log   *slog.Logger
}

// New returns a Handler backed by s. A nil logger uses slog.Default.
func New(s store.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{store: s, log: log}
}

// Mux returns a ServeMux with the handler mounted at Path.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, h)
	return mux
}

type upsertBody struct {
	Name          string `json:"name"`
	EncryptedData string `json:"encryptedData"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.post(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": fmt.Sprintf("method %s not allowed", r.Method)})
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if name := r.URL.Query().Get("name"); name != "" {
		ok, err := h.store.Exists(ctx, name)
		if err != nil {
			h.fail(w, "check entry", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})
		return
	}

	entries, err := h.store.List(ctx)
	if err != nil {
		h.fail(w, "list entries", err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string][]store.Entry{"entries": entries})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var body upsertBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if body.Name == "" || body.EncryptedData == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and encryptedData are required"})
		return
	}

	if err := h.store.Upsert(r.Context(), body.Name, body.EncryptedData); err != nil {
		h.fail(w, "save entry", err)
		return
	}
	h.log.Debug("entry saved", "name", body.Name)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("entry %q saved", body.Name),
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var ref store.Ref
	switch {
	case q.Get("id") != "":
		ref = store.IDRef(q.Get("id"))
	case q.Get("name") != "":
		ref = store.NameRef(q.Get("name"))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id or name is required"})
		return
	}

	err := h.store.Delete(r.Context(), ref)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("no entry with %s", ref)})
		return
	case err != nil:
		h.fail(w, "delete entry", err)
		return
	}
	h.log.Debug("entry deleted", "ref", ref.String())
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "entry deleted"})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.log.Error(op, "err", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": op + " failed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
