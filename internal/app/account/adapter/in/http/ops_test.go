package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-account-ledger/internal/app/account/domain"
	"github.com/JoeShih716/go-account-ledger/internal/app/account/observability"
)

func TestOpsServer_Health(t *testing.T) {
	tests := []struct {
		name     string
		checks   map[string]HealthCheck
		wantCode int
		want     string
	}{
		{
			name:     "no checks",
			wantCode: http.StatusOK,
			want:     "ok",
		},
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"mysql": func(context.Context) error { return nil },
				"redis": func(context.Context) error { return nil },
			},
			wantCode: http.StatusOK,
			want:     "ok",
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"mysql": func(context.Context) error { return nil },
				"redis": func(context.Context) error { return errors.New("connection refused") },
			},
			wantCode: http.StatusServiceUnavailable,
			want:     "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewOpsServer(nil)
			for name, check := range tt.checks {
				s.AddCheck(name, check)
			}

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.want, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestOpsServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	metrics.ObserveTransaction(domain.TransactionTypeUse, domain.TransactionResultSuccess, "")

	rec := httptest.NewRecorder()
	NewOpsServer(reg).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `account_transactions_total{code="OK",result="SUCCESS",type="USE"} 1`)
}

func TestOpsServer_MetricsDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	NewOpsServer(nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
