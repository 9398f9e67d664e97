package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/fx"
)

type rateRequest struct {
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate string          `json:"effectiveDate"`
}

// ListRates handles GET /api/v1/rates.
func (h *Handler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.rates.List(r.Context(), parseLimit(r))
	if err != nil {
		writeServiceError(w, "list rates", err)
		return
	}
	if rates == nil {
		rates = []fx.Rate{}
	}
	writeJSON(w, http.StatusOK, rates)
}

// GetLatestRate handles GET /api/v1/rates/latest.
func (h *Handler) GetLatestRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.Latest(r.Context())
	if err != nil {
		writeServiceError(w, "latest rate", err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// GetRate handles GET /api/v1/rates/{id}.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rate, err := h.rates.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get rate", err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// RecordRate handles POST /api/v1/rates. A rate is never edited; a change is a new rate.
func (h *Handler) RecordRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	effective := time.Now().UTC()
	if req.EffectiveDate != "" {
		d, err := time.Parse("2006-01-02", req.EffectiveDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		effective = d
	}

	rate, err := h.rates.Record(r.Context(), req.Rate, effective)
	if err != nil {
		writeServiceError(w, "record rate", err)
		return
	}
	writeJSON(w, http.StatusCreated, rate)
}
