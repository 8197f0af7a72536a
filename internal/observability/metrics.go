package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jail",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of outbound roster fetches",
		Buckets:   prometheus.ExponentialBuckets(0.025, 2, 10),
	}, []string{"kind"})

	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jail",
		Name:      "fetch_errors_total",
		Help:      "Outbound fetches that failed or returned a non-success status",
	}, []string{"kind"})

	CandidatesSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jail",
		Name:      "candidates_total",
		Help:      "Listing candidates by routing decision",
	}, []string{"route"})

	ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jail",
		Name:      "extraction_failures_total",
		Help:      "Detail pages that could not be turned into a record",
	})

	RecordsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jail",
		Name:      "records_persisted_total",
		Help:      "Records handled by the serializer and backfill updater",
	}, []string{"path", "outcome"})

	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jail",
		Name:      "image_uploads_total",
		Help:      "Booking photo uploads to object storage",
	}, []string{"outcome"})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jail",
		Name:      "embedding_requests_total",
		Help:      "Embedding requests by outcome",
	}, []string{"outcome"})

	KnownInmates = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "jail",
		Name:      "known_inmates",
		Help:      "Inmate rows in the store after the last run",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jail",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a crawl run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jail",
		Name:      "http_request_duration_seconds",
		Help:      "Ops API request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
