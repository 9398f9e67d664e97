package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/fuelprice/internal/fx"
	"github.com/mtlprog/fuelprice/internal/pricing"
	"github.com/mtlprog/fuelprice/internal/quote"
	"github.com/mtlprog/fuelprice/internal/record"
	"github.com/mtlprog/fuelprice/internal/rollup"
	"github.com/mtlprog/fuelprice/internal/validate"
)

// Handler provides HTTP endpoints for the pricing API.
type Handler struct {
	rates   *fx.Service
	records *record.Service
	quotes  *quote.Service
	places  int32
}

// NewHandler creates a new API handler. Figures in responses are rounded to places.
func NewHandler(rates *fx.Service, records *record.Service, quotes *quote.Service, places int32) *Handler {
	return &Handler{rates: rates, records: records, quotes: quotes, places: places}
}

type kindInfo struct {
	Kind   pricing.Kind `json:"kind"`
	Fields []string     `json:"fields"`
}

// ListKinds handles GET /api/v1/kinds.
func (h *Handler) ListKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := make([]kindInfo, 0, len(pricing.Kinds))
	for _, k := range pricing.Kinds {
		t, err := pricing.Table(k, pricing.Options{IncludePMFFiscal: true})
		if err != nil {
			continue
		}
		kinds = append(kinds, kindInfo{Kind: k, Fields: t.Fields()})
	}
	writeJSON(w, http.StatusOK, kinds)
}

type previewRequest struct {
	Kind    pricing.Kind        `json:"kind"`
	Rate    decimal.NullDecimal `json:"rate"`
	RateID  *int64              `json:"rateId"`
	Options pricing.Options     `json:"options"`
	Inputs  rollup.Inputs       `json:"inputs"`
}

// Preview handles POST /api/v1/preview. Nothing is stored and no policy check runs.
// An explicit rate wins over rateId; with neither, the latest recorded rate is used.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		out pricing.Output
		err error
	)
	if req.Rate.Valid {
		out, err = pricing.Compute(req.Kind, req.Inputs, req.Rate.Decimal, req.Options)
	} else {
		out, err = h.records.Preview(r.Context(), record.SaveParams{
			Kind:    req.Kind,
			RateID:  req.RateID,
			Options: req.Options,
			Inputs:  req.Inputs,
		})
	}
	if err != nil {
		writeServiceError(w, "preview", err)
		return
	}
	writeJSON(w, http.StatusOK, out.Rounded(h.places))
}

// ListRecords handles GET /api/v1/records.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	var kind pricing.Kind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, err := pricing.ParseKind(k)
		if err != nil {
			writeServiceError(w, "list records", err)
			return
		}
		kind = parsed
	}

	records, err := h.records.List(r.Context(), kind, parseLimit(r))
	if err != nil {
		writeServiceError(w, "list records", err)
		return
	}
	if records == nil {
		records = []record.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// CreateRecord handles POST /api/v1/records.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var p record.SaveParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.records.Create(r.Context(), p)
	if err != nil {
		writeServiceError(w, "create record", err)
		return
	}
	saved.Output = saved.Output.Rounded(h.places)
	writeJSON(w, http.StatusCreated, saved)
}

// GetRecord handles GET /api/v1/records/{id}.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	saved, err := h.records.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get record", err)
		return
	}
	saved.Output = saved.Output.Rounded(h.places)
	writeJSON(w, http.StatusOK, saved)
}

// UpdateRecord handles PUT /api/v1/records/{id}.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p record.SaveParams
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.records.Update(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, "update record", err)
		return
	}
	saved.Output = saved.Output.Rounded(h.places)
	writeJSON(w, http.StatusOK, saved)
}

// DeleteRecord handles DELETE /api/v1/records/{id}. Quotes of a build-up go with it.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.records.Delete(r.Context(), id); err != nil {
		writeServiceError(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request) int {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}
	return limit
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, record.ErrNotFound),
		errors.Is(err, quote.ErrNotFound),
		errors.Is(err, fx.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pricing.ErrUnknownKind),
		errors.Is(err, validate.ErrUnknownRole),
		errors.Is(err, quote.ErrInvalidQuote),
		errors.Is(err, fx.ErrNonPositiveRate),
		errors.Is(err, fx.ErrRatePrecision):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, validate.ErrMarginBelowFloor),
		errors.Is(err, record.ErrNotBuildUp):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
