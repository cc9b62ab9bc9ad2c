package server

import "fmt"

func (s *Server) displayServerInfo(addr string) {
	fmt.Fprintf(s.out, "jobprep local service listening on http://%s\n", addr)
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	fmt.Fprintln(s.out, "Available endpoints:")
	fmt.Fprintln(s.out, "  GET    /health                                  - Health check")
	fmt.Fprintln(s.out, "  GET    /stats                                   - Server statistics")
	if s.deps.Observability.MetricsHandler() != nil {
		fmt.Fprintf(s.out, "  GET    %-40s - Prometheus metrics\n", s.deps.Observability.MetricsPath())
	}
	fmt.Fprintln(s.out, "  GET    /draft                                   - Load the résumé draft")
	fmt.Fprintln(s.out, "  PUT    /draft                                   - Save the résumé draft")
	fmt.Fprintln(s.out, "  DELETE /draft                                   - Clear the résumé draft")
	fmt.Fprintln(s.out, "  POST   /draft/validate                          - Validate a draft")
	fmt.Fprintln(s.out, "  POST   /format                                  - Format phone/date input")
	fmt.Fprintln(s.out, "  POST   /results/present                         - Build an assessment report")
	fmt.Fprintln(s.out, "  POST   /assessment/sessions                     - Start an assessment")
	fmt.Fprintln(s.out, "  GET    /assessment/sessions/{id}                - Session state")
	fmt.Fprintln(s.out, "  PUT    /assessment/sessions/{id}/answers/{idx}  - Record an answer")
	fmt.Fprintln(s.out, "  PUT    /assessment/sessions/{id}/page           - Change page")
	fmt.Fprintln(s.out, "  POST   /assessment/sessions/{id}/submit         - Submit answers")
	fmt.Fprintln(s.out, "  POST   /donations                               - Start a donation")
	fmt.Fprintln(s.out, "  POST   /donations/confirm                       - Confirm a donation")
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Fprintf(s.out, "API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		return
	}
	fmt.Fprintln(s.out, "API authentication: DISABLED (no API keys configured)")
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(s.out, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
		return
	}
	fmt.Fprintln(s.out, "Request size limit: DISABLED")
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimiter == nil {
		fmt.Fprintln(s.out, "Rate limiting: DISABLED")
		return
	}
	fmt.Fprintf(s.out, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
		s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
	if s.RateLimit.ByAPIKey {
		fmt.Fprintln(s.out, "  - Per API key rate limiting enabled")
	}
	if s.RateLimit.ByIP {
		fmt.Fprintln(s.out, "  - Per IP address rate limiting enabled")
	}
}
