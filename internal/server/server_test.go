package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"jobprep/internal/assessment"
	"jobprep/internal/config"
	"jobprep/internal/errors"
	"jobprep/internal/observability"
	"jobprep/internal/payment"
	"jobprep/internal/results"
	"jobprep/internal/storage"
	"jobprep/internal/types"
	"jobprep/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeUpstream struct{ healthy bool }

func (f fakeUpstream) Stats() map[string]any { return map[string]any{"healthy": f.healthy} }
func (f fakeUpstream) Healthy() bool         { return f.healthy }

type fakeAssessmentAPI struct{ submitted []int }

func (f *fakeAssessmentAPI) StartAssessment(_ context.Context, name string) (*types.AssessmentStart, error) {
	return &types.AssessmentStart{
		Assessment: types.AssessmentRef{ID: 42},
		Questions:  []types.Question{{ID: 1, Number: 1, Text: "q1"}, {ID: 2, Number: 2, Text: "q2"}},
	}, nil
}

func (f *fakeAssessmentAPI) SubmitAssessment(_ context.Context, id int, answers []int) (*types.ResultPayload, error) {
	f.submitted = answers
	return &types.ResultPayload{Result: types.AssessmentResult{
		Scores:             types.ScoreVector{types.Communication: 4.2, types.Growth: 3},
		AttentionCheckPass: true,
	}}, nil
}

func (f *fakeAssessmentAPI) AssessmentResult(context.Context, int) (*types.ResultPayload, error) {
	return nil, fmt.Errorf("not used")
}

type fakePaymentAPI struct{ got *types.DonationRequest }

func (f *fakePaymentAPI) RequestPayment(_ context.Context, req types.DonationRequest) (*types.PaymentSession, error) {
	f.got = &req
	return &types.PaymentSession{OrderID: "order-1", Amount: req.Amount}, nil
}

func (f *fakePaymentAPI) ConfirmPayment(_ context.Context, conf types.PaymentConfirmation) (*types.PaymentReceipt, error) {
	return &types.PaymentReceipt{Message: "ok", Donation: types.Donation{OrderID: conf.OrderID, PaymentStatus: types.PaymentDone}}, nil
}

type fixture struct {
	srv      *Server
	http     *httptest.Server
	backend  *storage.MemoryBackend
	assess   *fakeAssessmentAPI
	payments *fakePaymentAPI
}

func newFixture(t *testing.T, mutate func(*config.ServerConfig, *Deps)) *fixture {
	t.Helper()
	logger := errors.NewNop()
	f := &fixture{
		backend:  storage.NewMemoryBackend(0),
		assess:   &fakeAssessmentAPI{},
		payments: &fakePaymentAPI{},
	}
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: "0", MaxRequestSize: 1 << 20}
	deps := Deps{
		Drafts:    storage.NewDraftStore(f.backend, "", logger),
		Validator: validation.New(validation.FixedClock{T: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}),
		Sessions: assessment.NewRegistry(func() *assessment.Session {
			return assessment.NewSession(f.assess, assessment.Options{PageSize: 1}, logger)
		}, time.Hour),
		Payments: payment.NewService(f.payments, logger),
		Upstream: fakeUpstream{healthy: true},
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	f.srv = NewServer(cfg, "test", deps, logger)
	f.srv.out = io.Discard
	f.http = httptest.NewServer(f.srv.Handler())
	t.Cleanup(func() {
		f.http.Close()
		if f.srv.RateLimiter != nil {
			f.srv.RateLimiter.Close()
		}
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.http.URL+path, rdr)
	require.NoError(t, err)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := f.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[map[string]any](t, body)["status"])

	degraded := newFixture(t, func(_ *config.ServerConfig, d *Deps) { d.Upstream = fakeUpstream{} })
	resp, body = degraded.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", decode[map[string]any](t, body)["status"])
}

func TestAuth(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig, _ *Deps) { c.APIKeys = []string{"secret-key-123", ""} })

	resp, body := f.do(t, http.MethodGet, "/draft", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", decode[ErrorResponse](t, body).Code)

	resp, _ = f.do(t, http.MethodGet, "/draft", nil, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/draft", nil, "X-API-Key", "secret-key-123")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/draft", nil, "Authorization", "Bearer secret-key-123")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health stays open")
}

func TestDraftRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	draft := types.DefaultResumeDraft()
	draft.Name = "홍길동"
	draft.Educations[0].School = "한국대학교"
	resp, _ := f.do(t, http.MethodPut, "/draft", map[string]any{
		"name":        draft.Name,
		"educations":  draft.Educations,
		"photoBase64": "data:image/jpeg;base64,AAAA",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodGet, "/draft", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[draftBody](t, body)
	assert.Equal(t, "홍길동", got.Name)
	assert.Equal(t, "한국대학교", got.Educations[0].School)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", got.PhotoBase64)
	assert.Len(t, got.Certificates, 1, "missing sections fall back to one template item")

	resp, _ = f.do(t, http.MethodPut, "/draft", map[string]any{"name": "x", "photoBase64": "javascript:alert(1)"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = f.do(t, http.MethodGet, "/draft", nil)
	assert.Empty(t, decode[draftBody](t, body).PhotoBase64)

	resp, _ = f.do(t, http.MethodDelete, "/draft", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, body = f.do(t, http.MethodGet, "/draft", nil)
	assert.Empty(t, decode[draftBody](t, body).Name)
}

func TestDraftQuotaExceeded(t *testing.T) {
	f := newFixture(t, func(_ *config.ServerConfig, d *Deps) {
		d.Drafts = storage.NewDraftStore(storage.NewMemoryBackend(16), "", errors.NewNop())
	})
	resp, body := f.do(t, http.MethodPut, "/draft", map[string]any{"name": "홍길동"})
	assert.Equal(t, http.StatusInsufficientStorage, resp.StatusCode)
	er := decode[ErrorResponse](t, body)
	assert.Equal(t, errors.ErrCodeStorageQuota, er.Code)
	assert.Equal(t, storage.MsgStorageQuota, er.Error)
}

func TestRequestTooLarge(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig, _ *Deps) { c.MaxRequestSize = 16 })
	resp, body := f.do(t, http.MethodPost, "/format", map[string]string{"kind": "phone", "value": strings.Repeat("1", 64)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[ErrorResponse](t, body).Error, "너무 큽니다")
}

func TestValidateDraft(t *testing.T) {
	f := newFixture(t, nil)
	draft := types.DefaultResumeDraft()
	draft.Name, draft.Email, draft.BirthDate = "홍길동", "hong@example.com", "1990-01-01"
	draft.Educations[0] = types.Education{School: "한국대", StartDate: "2020.03", EndDate: "2019.02"}

	resp, body := f.do(t, http.MethodPost, "/draft/validate", draft)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[validation.Report](t, body)
	assert.Equal(t, validation.MsgEndBeforeStart, report.Errors[types.SectionEducations][0]["endDate"])
	assert.Contains(t, report.FirstError, "학력 1번 항목")
}

func TestFormat(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct{ kind, in, want string }{
		{"phone", "01012345678", "010-1234-5678"},
		{"date", "19900101", "1990-01-01"},
		{"yearmonth", "201103", "2011.03"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			resp, body := f.do(t, http.MethodPost, "/format", formatRequest{Kind: tt.kind, Value: tt.in})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, decode[map[string]string](t, body)["value"])
		})
	}

	resp, body := f.do(t, http.MethodPost, "/format", formatRequest{Kind: "zip", Value: "1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, errors.ErrCodeInvalidInput, decode[ErrorResponse](t, body).Code)

	resp, _ = f.do(t, http.MethodPost, "/format", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPresentResult(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodPost, "/results/present?name="+url.QueryEscape("홍길동"), `{"communication":"4.5","stress":2,"growth":"x"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[results.Report](t, body)
	assert.Equal(t, "홍길동", report.Name)
	assert.Equal(t, types.Communication, report.TopTrait)
	assert.Len(t, report.Rows, len(types.Dimensions))
	assert.NotEmpty(t, report.Summary)
}

func TestAssessmentFlow(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodPost, "/assessment/sessions", map[string]string{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, assessment.MsgNameRequired, decode[ErrorResponse](t, body).Error)
	assert.Equal(t, 0, f.srv.deps.Sessions.Len(), "failed start is not kept")

	resp, body = f.do(t, http.MethodPost, "/assessment/sessions", map[string]string{"name": "홍길동"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	view := decode[sessionView](t, body)
	require.NotEmpty(t, view.SessionID)
	assert.Equal(t, 42, view.Session.ID)
	assert.Equal(t, 2, view.Session.TotalPages)
	base := "/assessment/sessions/" + view.SessionID

	resp, _ = f.do(t, http.MethodPut, base+"/answers/0", map[string]int{"value": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPut, base+"/answers/abc", map[string]int{"value": 3})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPut, base+"/answers/0", map[string]int{"value": 4})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 50, decode[sessionView](t, body).Session.Progress)

	resp, body = f.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, assessment.MsgIncomplete, decode[ErrorResponse](t, body).Error)
	assert.Nil(t, f.assess.submitted)

	resp, body = f.do(t, http.MethodPut, base+"/page", map[string]int{"question": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[sessionView](t, body)
	assert.Equal(t, 1, view.Session.Page)
	require.Len(t, view.Page, 1)
	assert.Equal(t, "q2", view.Page[0].Question.Text)

	f.do(t, http.MethodPut, base+"/answers/1", map[string]int{"value": 2})
	resp, body = f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, []int{4, 2}, f.assess.submitted)
	var submitted struct {
		Report results.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(body, &submitted))
	assert.Equal(t, types.Communication, submitted.Report.TopTrait)
	assert.Equal(t, "홍길동", submitted.Report.Name)

	resp, body = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, assessment.Finished, decode[sessionView](t, body).Session.State)

	resp, _ = f.do(t, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, http.MethodGet, "/assessment/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDonations(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodPost, "/donations", types.DonationRequest{Amount: 1500, DonorName: "익명"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, payment.MsgAmountInvalid, decode[ErrorResponse](t, body).Error)
	assert.Nil(t, f.payments.got)

	resp, body = f.do(t, http.MethodPost, "/donations", types.DonationRequest{Amount: 3000, DonorName: " 익명 "})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "order-1", decode[types.PaymentSession](t, body).OrderID)
	assert.Equal(t, "익명", f.payments.got.DonorName)

	resp, _ = f.do(t, http.MethodPost, "/donations/confirm", types.PaymentConfirmation{OrderID: "order-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/donations/confirm",
		types.PaymentConfirmation{PaymentKey: "pk", OrderID: "order-1", Amount: 3000})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, types.PaymentDone, decode[types.PaymentReceipt](t, body).Donation.PaymentStatus)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(c *config.ServerConfig, _ *Deps) {
		c.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})

	resp, _ := f.do(t, http.MethodGet, "/draft", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := f.do(t, http.MethodGet, "/draft", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", decode[ErrorResponse](t, body).Code)

	// a different forwarded client gets its own bucket
	resp, _ = f.do(t, http.MethodGet, "/draft", nil, "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = f.do(t, http.MethodGet, "/stats", nil)
	stats := decode[map[string]any](t, body)
	assert.EqualValues(t, 2, stats["rate_limiting"].(map[string]any)["active_limiters"])
}

func TestMetricsEndpoint(t *testing.T) {
	om, err := observability.NewManager(observability.Settings{
		Enabled: true, ServiceName: "jobprep", SampleRate: 1, CollectionInterval: time.Minute,
		Prometheus: config.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = om.Shutdown(context.Background()) })

	f := newFixture(t, func(c *config.ServerConfig, d *Deps) {
		d.Observability = om
		c.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstCapacity: 1, ByIP: true}
	})
	f.do(t, http.MethodGet, "/draft", nil)
	f.do(t, http.MethodGet, "/draft", nil)

	resp, body := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "jobprep_rate_limit_hits_total")
}

func TestLimiterManagerCleanup(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := newLimiterManager(60, 1, time.Hour, nil)
	assert.True(t, m.Allow("ip:1"))
	assert.False(t, m.Allow("ip:1"))
	assert.True(t, m.Allow("ip:2"))

	m.mu.Lock()
	m.lastSeen["ip:1"] = time.Now().Add(-2 * time.Hour)
	m.mu.Unlock()
	m.cleanup(time.Hour)
	assert.Equal(t, 1, m.GetStats()["active_limiters"])

	m.Close()
	m.Close()
}

func TestServeShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	logger := errors.NewNop()
	srv := NewServer(config.ServerConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMin: 60, BurstCapacity: 5, ByIP: true},
	}, "test", Deps{}, logger)
	srv.out = io.Discard

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	http.DefaultClient.CloseIdleConnections()
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"busy", assessment.ErrBusy, http.StatusConflict},
		{"missing session", errors.NewValidationError(errors.ErrCodeSessionState, "x", nil).WithContext("session_id", "a"), http.StatusNotFound},
		{"circuit", errors.NewNetworkError(errors.ErrCodeCircuitOpen, "x", nil), http.StatusServiceUnavailable},
		{"timeout", errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "x", nil), http.StatusGatewayTimeout},
		{"backend 4xx", errors.NewNetworkError(errors.ErrCodeNetworkFailed, "x", nil).WithContext("status", 422), http.StatusUnprocessableEntity},
		{"backend 5xx", errors.NewNetworkError(errors.ErrCodeNetworkFailed, "x", nil).WithContext("status", 500), http.StatusBadGateway},
		{"storage", errors.NewStorageError(errors.ErrCodeStorageWriteFailed, "x", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
