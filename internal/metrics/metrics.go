package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics populated by the metrics middleware
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Verification flow metrics
var (
	OTPCodesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_codes_issued_total",
			Help: "Verification codes sent, by purpose",
		},
		[]string{"purpose"},
	)

	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Verification attempts, by purpose and result",
		},
		[]string{"purpose", "result"},
	)

	OTPRequestsThrottled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_requests_throttled_total",
			Help: "Code requests rejected by rate limiting, by reason",
		},
		[]string{"reason"},
	)

	VerificationTokensConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_tokens_consumed_total",
			Help: "Verification token redemptions, by result",
		},
		[]string{"result"},
	)
)

// Verification results
const (
	ResultVerified  = "verified"
	ResultRejected  = "rejected"
	ResultExpired   = "expired"
	ResultExhausted = "exhausted"
)
