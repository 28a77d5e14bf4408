package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "courier"

// authStates lists every label value of the auth_state gauge so exactly one
// of them reads 1.
var authStates = []string{
	"disconnected",
	"connecting",
	"awaiting_user_verification",
	"authenticated",
	"failed",
}

type moduleMetrics struct {
	turnTotal    *prometheus.CounterVec
	turnDuration prometheus.Histogram
	historySize  prometheus.Gauge

	completionTotal    *prometheus.CounterVec
	completionDuration *prometheus.HistogramVec
	tokensTotal        *prometheus.CounterVec

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolErrorsTotal       *prometheus.CounterVec

	loginTotal    *prometheus.CounterVec
	loginDuration prometheus.Histogram
	authState     *prometheus.GaugeVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			turnTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "turn_total",
					Help:      "Total conversation turns by outcome.",
				},
				[]string{"outcome"},
			),
			turnDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "turn_duration_seconds",
					Help:      "Conversation turn duration in seconds.",
					Buckets:   prometheus.DefBuckets,
				},
			),
			historySize: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "history_messages",
					Help:      "Messages currently held in conversation history.",
				},
			),
			completionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "completion_total",
					Help:      "Total LLM completion requests by provider, phase and status.",
				},
				[]string{"provider", "phase", "status"},
			),
			completionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "completion_duration_seconds",
					Help:      "LLM completion duration in seconds by provider.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			tokensTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "tokens_total",
					Help:      "Total tokens consumed by provider and direction.",
				},
				[]string{"provider", "direction"},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "tool_execution_total",
					Help:      "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "tool_execution_duration_seconds",
					Help:      "Tool execution duration in seconds by tool.",
					Buckets:   prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "tool_errors_total",
					Help:      "Total tool execution errors by tool and error kind.",
				},
				[]string{"tool", "kind"},
			),
			loginTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "login_total",
					Help:      "Total capability server logins by status.",
				},
				[]string{"status"},
			),
			loginDuration: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "login_duration_seconds",
					Help:      "Capability server login duration in seconds, including operator confirmation.",
					Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
				},
			),
			authState: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Name:      "auth_state",
					Help:      "Capability session authentication state (1 current, 0 otherwise).",
				},
				[]string{"state"},
			),
		}

		prometheus.MustRegister(
			m.turnTotal,
			m.turnDuration,
			m.historySize,
			m.completionTotal,
			m.completionDuration,
			m.tokensTotal,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolErrorsTotal,
			m.loginTotal,
			m.loginDuration,
			m.authState,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordTurn records a finished turn. Outcome is one of reply, tool_reply,
// rolled_back or failed.
func RecordTurn(outcome string, duration time.Duration, historyLen int) {
	m := getMetrics()
	m.turnTotal.WithLabelValues(outcome).Inc()
	m.turnDuration.Observe(duration.Seconds())
	m.historySize.Set(float64(historyLen))
}

func SetHistorySize(historyLen int) {
	getMetrics().historySize.Set(float64(historyLen))
}

func RecordCompletion(provider, phase string, duration time.Duration, success bool) {
	m := getMetrics()
	m.completionTotal.WithLabelValues(provider, phase, statusLabel(success)).Inc()
	m.completionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func RecordTokens(provider string, input, output int) {
	m := getMetrics()
	m.tokensTotal.WithLabelValues(provider, "input").Add(float64(input))
	m.tokensTotal.WithLabelValues(provider, "output").Add(float64(output))
}

// RecordToolExecution records one tool invocation. errKind is empty on success.
func RecordToolExecution(tool string, duration time.Duration, errKind string) {
	m := getMetrics()
	m.toolExecutionTotal.WithLabelValues(tool, statusLabel(errKind == "")).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
	if errKind != "" {
		m.toolErrorsTotal.WithLabelValues(tool, errKind).Inc()
	}
}

func RecordLogin(duration time.Duration, success bool) {
	m := getMetrics()
	m.loginTotal.WithLabelValues(statusLabel(success)).Inc()
	m.loginDuration.Observe(duration.Seconds())
}

func SetAuthState(state string) {
	m := getMetrics()
	for _, s := range authStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		m.authState.WithLabelValues(s).Set(value)
	}
}
