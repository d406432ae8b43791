package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/docoutline/internal/store"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists stored documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		jsonError(w, "document store disabled", http.StatusServiceUnavailable)
		return
	}
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	docs, err := s.docs.List(r.Context(), limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// handleGetDocument returns a stored document's outline and metadata.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		jsonError(w, "document store disabled", http.StatusServiceUnavailable)
		return
	}
	doc, err := s.docs.Get(r.Context(), chi.URLParam(r, "docID"))
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to load document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]any{"document": doc}
	if formBool(r.URL.Query().Get("blocks")) {
		resp["blocks"] = doc.Blocks
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDeleteDocument removes a document from the catalogue and from every
// mirror. Mirror failures are reported but do not fail the request.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		jsonError(w, "document store disabled", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	err := s.docs.Delete(ctx, docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
		return
	}

	mirrorErrors := map[string]string{}
	for _, m := range s.removers {
		if err := m.Delete(ctx, docID); err != nil {
			s.log.Warn("mirror delete failed", "doc_id", docID, "sink", m.Name(), "error", err)
			mirrorErrors[m.Name()] = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":        docID,
		"deleted":       true,
		"mirror_errors": mirrorErrors,
	})
}
