// Package docserver implements the reference remote document store: a
// small HTTP API over a storage backend, matching the endpoints the
// remote client speaks. It exists so a user can self-host a sync target
// and so the remote client can be tested against a real server.
package docserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cogodo/spaced-sub003/internal/store"
)

// NewRouter builds the document API router over the given backend.
// An empty jwtSecret disables authentication (local development only).
func NewRouter(backend store.Backend, jwtSecret string, logger *slog.Logger) http.Handler {
	s := &server{
		backend: backend,
		logger:  logger.With("component", "docserver"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(bearerAuth(jwtSecret, s.logger))
		}
		r.Route("/collections/{collection}", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Route("/docs/{id}", func(r chi.Router) {
				r.Get("/", s.handleGet)
				r.Put("/", s.handleSet)
				r.Patch("/", s.handleUpdate)
				r.Delete("/", s.handleDelete)
			})
		})
	})

	return r
}

type server struct {
	backend store.Backend
	logger  *slog.Logger
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	rec, err := s.backend.Get(r.Context(), collection, id)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.fail(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleSet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	rec, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	if err := s.backend.Set(r.Context(), collection, id, rec); err != nil {
		s.fail(w, "set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	fields, ok := decodeRecord(w, r)
	if !ok {
		return
	}
	err := s.backend.Update(r.Context(), collection, id, fields)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.fail(w, "update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDelete(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	if err := s.backend.Delete(r.Context(), collection, id); err != nil {
		s.fail(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	records, err := s.backend.List(r.Context(), collection)
	if err != nil {
		s.fail(w, "list", err)
		return
	}

	type doc struct {
		ID     string       `json:"id"`
		Record store.Record `json:"record"`
	}
	docs := make([]doc, 0, len(records))
	for _, kr := range records {
		docs = append(docs, doc{ID: kr.ID, Record: kr.Record})
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *server) fail(w http.ResponseWriter, operation string, err error) {
	s.logger.Error("document operation failed", "operation", operation, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (store.Record, bool) {
	var rec store.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
