package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"jobprep/internal/config"
	"jobprep/internal/errors"
	"jobprep/internal/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*config.APIConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.APIConfig{BaseURL: srv.URL + "/api/", Token: "secret", Timeout: 5 * time.Second}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, errors.NewNop())
}

func TestStartAssessmentSendsHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/assessment/start/", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get(HeaderRequestID))
		assert.NoError(t, err)

		var body types.AssessmentStartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "홍길동", body.Name)

		_, _ = io.WriteString(w, `{"assessment":{"id":3},"questions":[{"id":1,"number":1,"text":"q"}]}`)
	})

	got, err := c.StartAssessment(context.Background(), "홍길동")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Assessment.ID)
	assert.Len(t, got.Questions, 1)
}

func TestSubmitAssessmentDecodesResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assessment/9/submit/", r.URL.Path)
		var body types.AssessmentSubmitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int{1, 2, 3}, body.Answers)
		_, _ = io.WriteString(w, `{"message":"ok","result":{"growth":"4.50"},"analysis":{"summary":"s"}}`)
	})

	got, err := c.SubmitAssessment(context.Background(), 9, []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.Result.Scores[types.Growth])
	assert.Equal(t, "s", got.Analysis.Summary)
}

func TestRecommendJobsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/assessment/recommend/", r.URL.Path)
		assert.Equal(t, "3.5", r.URL.Query().Get("comm"))
		assert.Equal(t, "2", r.URL.Query().Get("adap"))
		_, _ = io.WriteString(w, `{"results":[{"title_ko":"데이터 분석가","similarity":0.98}]}`)
	})

	got, err := c.RecommendJobs(context.Background(), types.ScoreVector{types.Communication: 3.5, types.Adaptation: 2})
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "데이터 분석가", got.Results[0].TitleKo)
}

func TestErrorBodies(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"분석할 내용이 없습니다."}`, "분석할 내용이 없습니다."},
		{"detail field", http.StatusNotFound, `{"detail":"Not found."}`, "Not found."},
		{"plain text", http.StatusBadGateway, `upstream down`, MsgRequestFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.AnalyzeSection(context.Background(), "motivation", "내용")
			require.Error(t, err)
			assert.Equal(t, tt.message, errors.UserMessage(err))
			assert.Equal(t, tt.status, StatusOf(err))
			assert.True(t, errors.HasCode(err, errors.ErrCodeNetworkFailed))
		})
	}
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.APIConfig{BaseURL: url, Timeout: time.Second}, errors.NewNop())
	_, err := c.AssessmentResult(context.Background(), 1)
	assert.Equal(t, MsgUnreachable, errors.UserMessage(err))
	assert.Equal(t, 0, StatusOf(err))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}, func(cfg *config.APIConfig) {
		cfg.CircuitBreaker = config.CircuitBreakerConfig{
			Enabled: true, MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute,
			MinRequests: 2, FailureThreshold: 0.5,
		}
	})

	ctx := context.Background()
	for range 2 {
		_, err := c.AssessmentResult(ctx, 1)
		assert.True(t, errors.HasCode(err, errors.ErrCodeNetworkFailed))
	}
	_, err := c.AssessmentResult(ctx, 1)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.False(t, c.breaker.IsHealthy())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, calls, "open breaker does not reach the backend")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, func(cfg *config.APIConfig) {
		cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, MinRequests: 1, FailureThreshold: 0.1, Timeout: time.Minute}
	})

	for range 3 {
		_, _ = c.AssessmentResult(context.Background(), 1)
	}
	assert.True(t, c.breaker.IsHealthy())
}

func TestSaveResumeMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		var draft types.ResumeDraft
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("data")), &draft))
		assert.Equal(t, "홍길동", draft.Name)

		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "me.png", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte{1, 2, 3}, data)

		_, _ = io.WriteString(w, `{"id":12}`)
	})

	draft := types.DefaultResumeDraft()
	draft.Name = "홍길동"
	got, err := c.SaveResume(context.Background(), draft, &Photo{FileName: "me.png", Data: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, 12, got.ID)
}

func TestConfirmPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/homepage/payment/confirm/", r.URL.Path)
		_, _ = io.WriteString(w, `{"message":"후원해주셔서 감사합니다!","donation":{"id":4,"amount":3000,"payment_status":"DONE"}}`)
	})

	got, err := c.ConfirmPayment(context.Background(), types.PaymentConfirmation{PaymentKey: "pk", OrderID: "o", Amount: 3000})
	require.NoError(t, err)
	assert.Equal(t, types.PaymentDone, got.Donation.PaymentStatus)
	assert.Equal(t, 3000, got.Donation.Amount)
}

type recorded struct {
	endpoint string
	status   int
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) RecordAPIRequest(_ context.Context, endpoint string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recorded{endpoint, status})
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	rec := &recorder{}
	c := New(config.APIConfig{BaseURL: srv.URL, Timeout: time.Second}, errors.NewNop(), WithMetrics(rec))
	_, err := c.AssessmentResult(context.Background(), 77)
	require.NoError(t, err)
	assert.Equal(t, []recorded{{"/assessment/{id}/result/", http.StatusOK}}, rec.calls)
}

func TestBackendMessage(t *testing.T) {
	assert.Equal(t, "x", backendMessage([]byte(`{"error":"x","detail":"y"}`)))
	assert.Equal(t, MsgRequestFail, backendMessage([]byte(`{"error":{"nested":true}}`)))
	assert.Equal(t, MsgRequestFail, backendMessage(nil))
}
