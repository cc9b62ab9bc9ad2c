package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"

	"jobprep/internal/client"
	"jobprep/internal/errors"
)

// healthHandler reports degraded while the backend circuit breaker is open.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "jobprep",
		"version": s.Version,
	}

	status := http.StatusOK
	if up := s.deps.Upstream; up != nil {
		response["upstream"] = up.Stats()
		if !up.Healthy() {
			response["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, response)
}

// statsHandler reports limiter, session and storage state.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "jobprep",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}
	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}
	if s.deps.Sessions != nil {
		response["assessment_sessions"] = s.deps.Sessions.Len()
	}
	if s.deps.Drafts != nil {
		response["draft_key"] = s.deps.Drafts.Key()
	}
	if s.deps.Upstream != nil {
		response["upstream"] = s.deps.Upstream.Stats()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON body into v. Unknown fields are ignored.
func parseJSONRequest(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return badRequest("Content-Type은 application/json이어야 합니다.", nil)
		}
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return badRequest(fmt.Sprintf("요청 본문이 너무 큽니다. (최대 %d바이트)", maxBytesErr.Limit), err)
		}
		return badRequest("요청 본문을 읽을 수 없습니다.", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return badRequest("요청 본문이 올바른 JSON이 아닙니다.", err)
	}
	return nil
}

func badRequest(msg string, cause error) *errors.AppError {
	return errors.NewValidationError(errors.ErrCodeInvalidRequest, msg, cause)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, resp ErrorResponse, statusCode int) {
	writeJSON(w, statusCode, resp)
}

// writeError maps err to a status and writes its user message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: errors.UserMessage(err)}
	if appErr, ok := errors.As(err); ok {
		resp.Code = appErr.Code
		if appErr.Type == errors.ErrorTypeValidation {
			resp.Context = appErr.Context
		}
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	}
	writeErrorResponse(w, resp, status)
}

func statusFor(err error) int {
	appErr, ok := errors.As(err)
	if !ok {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errors.ErrCodeBusy:
		return http.StatusConflict
	case errors.ErrCodeSessionState:
		if _, missing := appErr.Context["session_id"]; missing {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case errors.ErrCodeCircuitOpen, errors.ErrCodeInvalidConfig:
		return http.StatusServiceUnavailable
	case errors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeStorageQuota:
		return http.StatusInsufficientStorage
	}

	// backend 4xx replies pass through so the shell can show the field problem
	if status := client.StatusOf(err); status >= 400 && status < 500 {
		return status
	}
	if appErr.Type == errors.ErrorTypeNetwork {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
