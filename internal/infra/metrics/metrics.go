package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AnalyzeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "funnel_analyze_requests_total",
		Help: "Количество принятых запросов на анализ",
	})
	AnalyzeRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "funnel_analyze_rejected_total",
		Help: "Количество отклонённых адресов на лендинге",
	})
	AnalysisRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "funnel_analysis_runs_total",
		Help: "Прогоны оркестратора по итоговому состоянию",
	}, []string{"state"})
	AnalysisRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "funnel_analysis_run_seconds",
		Help:    "Время полного прогона анализа",
		Buckets: prometheus.DefBuckets,
	})
	SimulatedReportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "funnel_simulated_reports_total",
		Help: "Сколько раз отдавался симулированный отчёт",
	})

	APIRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gazel_api_request_duration_seconds",
		Help:    "Длительность запросов к удалённому API",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
	}, []string{"endpoint", "status"})

	APIRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gazel_api_request_total",
		Help: "Количество запросов к удалённому API",
	}, []string{"endpoint", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		AnalyzeRequestsTotal,
		AnalyzeRejectedTotal,
		AnalysisRunsTotal,
		AnalysisRunSeconds,
		SimulatedReportsTotal,
		APIRequestDuration,
		APIRequestTotal,
	)
}

// ObserveAPIRequest фиксирует одну попытку запроса к удалённому API.
func ObserveAPIRequest(endpoint string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	APIRequestDuration.WithLabelValues(endpoint, status).Observe(duration.Seconds())
	APIRequestTotal.WithLabelValues(endpoint, status).Inc()
}

// IncAnalysisRun фиксирует итог прогона оркестратора.
func IncAnalysisRun(state string) {
	AnalysisRunsTotal.WithLabelValues(state).Inc()
}
