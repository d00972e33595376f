package observability

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/eduplanner-backend/internal/platform/envutil"
	"github.com/yungbote/eduplanner-backend/internal/platform/logger"
)

// Metrics is a small Prometheus text-format registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	apiErrors     *Counter
	genRequests   *CounterVec
	genLatency    *HistogramVec
	workflowSteps *CounterVec
	ratings       *CounterVec
	sseClients    *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool { return envutil.Bool("METRICS_ENABLED", false) }

func Current() *Metrics { return instance }

// Init builds the process-wide registry when METRICS_ENABLED is set; otherwise it returns nil.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("edu_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"edu_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("edu_api_inflight_requests", "In-flight API requests."),
		apiErrors:   NewCounter("edu_api_server_errors_total", "API responses with a 5xx status."),
		genRequests: NewCounterVec("edu_generation_requests_total", "Generation calls by mode/status.", []string{"mode", "status"}),
		genLatency: NewHistogramVec(
			"edu_generation_duration_seconds",
			"Generation call latency in seconds by mode.",
			[]string{"mode"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		),
		workflowSteps: NewCounterVec("edu_workflow_transitions_total", "Evaluation workflow snapshots by state.", []string{"state"}),
		ratings:       NewCounterVec("edu_agent_ratings_total", "Logged agent ratings by agent/rating.", []string{"agent", "rating"}),
		sseClients:    NewGauge("edu_sse_clients", "Connected realtime clients."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []collector{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.genRequests, m.genLatency, m.workflowSteps, m.ratings, m.sseClients,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
	if strings.HasPrefix(status, "5") {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

func (m *Metrics) ObserveGeneration(mode, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.genRequests.Inc(mode, status)
	m.genLatency.Observe(dur.Seconds(), mode)
}

func (m *Metrics) IncWorkflowState(state string) {
	if m != nil {
		m.workflowSteps.Inc(state)
	}
}

func (m *Metrics) IncAgentRating(agent, rating string) {
	if m != nil {
		m.ratings.Inc(agent, rating)
	}
}

func (m *Metrics) SSEClientConnected() {
	if m != nil {
		m.sseClients.Inc()
	}
}

func (m *Metrics) SSEClientDisconnected() {
	if m != nil {
		m.sseClients.Dec()
	}
}
