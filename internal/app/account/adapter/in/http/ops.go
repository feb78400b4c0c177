// Package http 提供維運用的 HTTP 端點 (/metrics, /healthz)
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck 回傳 nil 代表依賴正常
type HealthCheck func(ctx context.Context) error

// OpsServer 維運 HTTP 服務
type OpsServer struct {
	gatherer prometheus.Gatherer
	checks   map[string]HealthCheck
	timeout  time.Duration
}

// NewOpsServer 建立維運服務，gatherer 為 nil 時不掛 /metrics
func NewOpsServer(gatherer prometheus.Gatherer) *OpsServer {
	return &OpsServer{
		gatherer: gatherer,
		checks:   make(map[string]HealthCheck),
		timeout:  2 * time.Second,
	}
}

// AddCheck 註冊健康檢查 (例如 mysql ping / redis ping)
func (s *OpsServer) AddCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler 回傳掛好所有路由的 chi router
func (s *OpsServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	code := http.StatusOK
	results := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	status := "ok"
	if code != http.StatusOK {
		status = "degraded"
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": results,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
