package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/folioguard/internal/common"
	"github.com/dmitrijs2005/folioguard/internal/server/content"
	"github.com/go-chi/chi/v5"
)

const maxContentSize = 10 << 20

type fileList struct {
	Files []string `json:"files"`
}

func (h *handlers) contentError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, content.ErrInvalidKey):
		writeError(w, http.StatusBadRequest, "Invalid path")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	default:
		h.logger.Error(r.Context(), "content "+op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to process request")
	}
}

func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	keys, err := h.content.List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		h.contentError(w, r, "list", err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, fileList{Files: keys})
}

func (h *handlers) getFile(w http.ResponseWriter, r *http.Request) {
	data, err := h.content.Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		h.contentError(w, r, "get", err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}

func (h *handlers) putFile(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxContentSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	key := chi.URLParam(r, "*")
	if err := h.content.Put(r.Context(), key, data); err != nil {
		h.contentError(w, r, "put", err)
		return
	}
	h.logger.Info(r.Context(), "content written", "key", key, "bytes", len(data),
		"account_id", AccessFromContext(r.Context()).Identity.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if err := h.content.Delete(r.Context(), key); err != nil {
		h.contentError(w, r, "delete", err)
		return
	}
	h.logger.Info(r.Context(), "content deleted", "key", key,
		"account_id", AccessFromContext(r.Context()).Identity.ID)
	w.WriteHeader(http.StatusNoContent)
}
