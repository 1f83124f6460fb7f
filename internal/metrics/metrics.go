package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SubmissionsTotal counts user operation submissions by payment type and outcome.
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lottolink",
		Name:      "submissions_total",
		Help:      "User operation submissions by payment type and outcome.",
	}, []string{"payment_type", "outcome"})

	// FallbackRetriesTotal counts sponsored submissions retried as prepay.
	FallbackRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lottolink",
		Name:      "fallback_retries_total",
		Help:      "Sponsored submissions automatically retried with an ERC-20 prepay.",
	})

	// SubmissionErrorsTotal counts submission failures by error kind.
	SubmissionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lottolink",
		Name:      "submission_errors_total",
		Help:      "Submission failures by classified error kind.",
	}, []string{"kind"})

	// SubmissionDuration observes end-to-end submission latency in seconds,
	// including receipt polling.
	SubmissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lottolink",
		Name:      "submission_duration_seconds",
		Help:      "End-to-end user operation submission latency.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	// WalletSetupsTotal counts wallet setup steps by step and outcome.
	WalletSetupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lottolink",
		Name:      "wallet_setups_total",
		Help:      "Wallet prefund/deploy steps by outcome.",
	}, []string{"step", "outcome"})
)
