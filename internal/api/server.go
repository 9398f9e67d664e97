package api

import (
	"net/http"
	"time"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, handler *Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      routes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func routes(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/kinds", h.ListKinds)
	mux.HandleFunc("POST /api/v1/preview", h.Preview)

	mux.HandleFunc("GET /api/v1/rates", h.ListRates)
	mux.HandleFunc("POST /api/v1/rates", h.RecordRate)
	mux.HandleFunc("GET /api/v1/rates/latest", h.GetLatestRate)
	mux.HandleFunc("GET /api/v1/rates/{id}", h.GetRate)

	mux.HandleFunc("GET /api/v1/records", h.ListRecords)
	mux.HandleFunc("POST /api/v1/records", h.CreateRecord)
	mux.HandleFunc("GET /api/v1/records/{id}", h.GetRecord)
	mux.HandleFunc("PUT /api/v1/records/{id}", h.UpdateRecord)
	mux.HandleFunc("DELETE /api/v1/records/{id}", h.DeleteRecord)
	mux.HandleFunc("GET /api/v1/records/{id}/quotes", h.ListQuotes)

	mux.HandleFunc("POST /api/v1/quotes", h.CreateQuote)
	mux.HandleFunc("GET /api/v1/quotes/{id}", h.GetQuote)
	mux.HandleFunc("PATCH /api/v1/quotes/{id}", h.UpdateQuote)
	mux.HandleFunc("DELETE /api/v1/quotes/{id}", h.DeleteQuote)

	return mux
}
