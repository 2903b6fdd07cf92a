package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetFiscal handles GET /orders/{number}/fiscal.
func (h *Handler) GetFiscal(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	doc, err := h.fiscal.Status(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// RetryFiscal handles POST /orders/{number}/fiscal/retry. Safe under
// double-clicks: concurrent retries for one order collapse, and an
// already authorized document is reported back unchanged.
func (h *Handler) RetryFiscal(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	doc, err := h.fiscal.Retry(r.Context(), number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetFiscalArtifact handles GET /orders/{number}/fiscal/{format}.
func (h *Handler) GetFiscalArtifact(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	format := chi.URLParam(r, "format")

	data, err := h.fiscal.Artifact(r.Context(), number, format)
	if err != nil {
		writeError(w, err)
		return
	}

	contentType := "application/pdf"
	if format == "xml" {
		contentType = "application/xml"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
