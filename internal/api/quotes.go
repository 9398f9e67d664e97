package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mtlprog/fuelprice/internal/quote"
)

func (h *Handler) present(p quote.Priced) quote.Priced {
	p.Pricing = p.Pricing.Rounded(h.places)
	return p
}

func quoteID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quote id")
		return uuid.Nil, false
	}
	return id, true
}

// ListQuotes handles GET /api/v1/records/{id}/quotes.
func (h *Handler) ListQuotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	priced, err := h.quotes.ListByBuildUp(r.Context(), id)
	if err != nil {
		writeServiceError(w, "list quotes", err)
		return
	}
	for i := range priced {
		priced[i] = h.present(priced[i])
	}
	writeJSON(w, http.StatusOK, priced)
}

// CreateQuote handles POST /api/v1/quotes.
func (h *Handler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var p quote.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	priced, err := h.quotes.Create(r.Context(), p)
	if err != nil {
		writeServiceError(w, "create quote", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(priced))
}

// GetQuote handles GET /api/v1/quotes/{id}.
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := quoteID(w, r)
	if !ok {
		return
	}
	priced, err := h.quotes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get quote", err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(priced))
}

// UpdateQuote handles PATCH /api/v1/quotes/{id}.
func (h *Handler) UpdateQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := quoteID(w, r)
	if !ok {
		return
	}
	var p quote.UpdateParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	priced, err := h.quotes.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, "update quote", err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(priced))
}

// DeleteQuote handles DELETE /api/v1/quotes/{id}.
func (h *Handler) DeleteQuote(w http.ResponseWriter, r *http.Request) {
	id, ok := quoteID(w, r)
	if !ok {
		return
	}
	if err := h.quotes.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete quote", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
