package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	InterviewsStarted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "interviews_started_total", Help: "Interviews activated"})
	InterviewsEnded     = prometheus.NewCounter(prometheus.CounterOpts{Name: "interviews_ended_total", Help: "Interviews marked inactive"})
	TurnsHandled        = prometheus.NewCounter(prometheus.CounterOpts{Name: "interview_turns_total", Help: "Chat turns processed"})
	ReportsGenerated    = prometheus.NewCounter(prometheus.CounterOpts{Name: "interview_reports_generated_total", Help: "Feedback reports generated"})
	ReportCacheHits     = prometheus.NewCounter(prometheus.CounterOpts{Name: "interview_report_cache_hits_total", Help: "Report requests served from cache"})
	EventsConsumed      = prometheus.NewCounter(prometheus.CounterOpts{Name: "broker_events_consumed_total", Help: "Events consumed from the service queue"})
	EventHandlerErrors  = prometheus.NewCounter(prometheus.CounterOpts{Name: "broker_event_handler_errors_total", Help: "Event handler failures"})
	PublishFailures     = prometheus.NewCounter(prometheus.CounterOpts{Name: "broker_publish_failures_total", Help: "Swallowed publish failures"})
	RPCTimeouts         = prometheus.NewCounter(prometheus.CounterOpts{Name: "broker_rpc_timeouts_total", Help: "RPC requests that hit their deadline"})
	RateLimitRejects    = prometheus.NewCounter(prometheus.CounterOpts{Name: "interview_rate_limit_rejects_total", Help: "Start requests rejected by rate limiter"})
	ActiveSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{Name: "broker_active_subscriptions", Help: "Running consume loops"})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			InterviewsStarted,
			InterviewsEnded,
			TurnsHandled,
			ReportsGenerated,
			ReportCacheHits,
			EventsConsumed,
			EventHandlerErrors,
			PublishFailures,
			RPCTimeouts,
			RateLimitRejects,
			ActiveSubscriptions,
		)
	})
	return promhttp.Handler()
}
