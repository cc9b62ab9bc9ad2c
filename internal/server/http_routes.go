package server

import (
	"net/http"
)

// setupRoutes builds the mux. Everything except /health, /stats and /metrics
// passes through rate limiting, auth and the body size limit, in that order.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	if h := s.deps.Observability.MetricsHandler(); h != nil {
		mux.Handle("GET "+s.deps.Observability.MetricsPath(), h)
	}

	s.handle(mux, "GET /draft", s.getDraft)
	s.handle(mux, "PUT /draft", s.putDraft)
	s.handle(mux, "DELETE /draft", s.deleteDraft)
	s.handle(mux, "POST /draft/validate", s.validateDraft)
	s.handle(mux, "POST /format", s.formatValue)
	s.handle(mux, "POST /results/present", s.presentResult)

	s.handle(mux, "POST /assessment/sessions", s.startSession)
	s.handle(mux, "GET /assessment/sessions/{id}", s.getSession)
	s.handle(mux, "PUT /assessment/sessions/{id}/answers/{index}", s.setAnswer)
	s.handle(mux, "PUT /assessment/sessions/{id}/page", s.setPage)
	s.handle(mux, "POST /assessment/sessions/{id}/submit", s.submitSession)

	s.handle(mux, "POST /donations", s.requestDonation)
	s.handle(mux, "POST /donations/confirm", s.confirmDonation)

	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, s.rateLimitMiddleware(s.authMiddleware(s.requestSizeLimitMiddleware(h))))
}

// authMiddleware checks X-API-Key or a Bearer token when keys are configured.
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, ErrorResponse{Error: "API 키가 필요합니다.", Code: "UNAUTHORIZED"}, http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, ErrorResponse{Error: "유효하지 않은 API 키입니다.", Code: "UNAUTHORIZED"}, http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

func (s *Server) requestSizeLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
		}
		next(w, r)
	}
}

// maskAPIKey shows only the first 8 characters.
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
