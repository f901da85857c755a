package server

import (
	"log"
	"net/http"

	"reposummarizer/internal/gateway/handler"
	"reposummarizer/internal/gateway/middleware"
	"reposummarizer/internal/metrics"
)

// NewMux registers the API routes. /metrics is served only when m is set.
func NewMux(h *handler.Handler, logger *log.Logger, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/summarize", h.Summarize)
	mux.HandleFunc("/summarize/ws", h.SummarizeWS)

	// Middleware
	var obs middleware.HTTPObserver
	if m != nil {
		mux.Handle("/metrics", m.Handler())
		obs = m
	}
	observed := middleware.Metrics(obs, "/health", "/summarize", "/summarize/ws", "/metrics")(mux)
	return middleware.CORS(middleware.Logging(logger)(observed))
}
