package api

import "net/http"

// NewMux kobler endepunktene til en ServeMux med CORS og
// forespørselslogging utenpå.
func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/repositories/analyze", h.AnalyzeRepository)
	mux.HandleFunc("GET /api/repositories", h.ListRepositories)
	mux.HandleFunc("GET /api/repositories/{id}", h.GetRepository)
	mux.HandleFunc("GET /api/analyses/{id}", h.GetAnalysis)
	mux.HandleFunc("GET /api/analyses/{id}/personality", h.GetPersonality)
	mux.HandleFunc("GET /api/analyses/{id}/task", h.GetTaskStatus)
	mux.HandleFunc("GET /healthz", h.Healthz)

	return RequestLog(CORS(mux))
}
