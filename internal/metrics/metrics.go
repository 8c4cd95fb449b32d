package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Scheduler
	TickTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scheduler_tick_total", Help: "Tick outcomes."},
		[]string{"result"}, // ok | skipped | error
	)
	DueBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_due_batch_size",
			Help:    "Number of due users per tick.",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0,10,...,100
		},
	)
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dispatch_total", Help: "Prompt dispatch outcomes."},
		[]string{"result"}, // sent_voice | sent_text | no_prompt | failed
	)

	// AI providers
	AIRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ai_request_total", Help: "AI provider call outcomes."},
		[]string{"provider", "result"}, // whisper|llm|tts, ok|error
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI provider call latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms..~100s
		},
		[]string{"provider"},
	)
)

// MustRegister installs our collectors into the default registry, which
// already carries the Go and process collectors.
func MustRegister() {
	prometheus.MustRegister(
		TickTotal, DueBatchSize, DispatchTotal,
		AIRequestTotal, AIRequestDuration,
	)
}
