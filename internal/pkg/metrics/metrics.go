package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boostacart"

var (
	// LeadAdmissions counts admission decisions by outcome (accepted or a reason code)
	LeadAdmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_admissions_total",
			Help:      "Lead submissions by admission outcome",
		},
		[]string{"outcome"},
	)

	// AdmissionDuration records the time spent inside the admission transaction
	AdmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_admission_duration_seconds",
			Help:      "Duration of lead admissions in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// QuotaInquiries counts widget pre-checks by whether the form may open
	QuotaInquiries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_inquiries_total",
			Help:      "Widget quota pre-checks by result",
		},
		[]string{"can_accept"},
	)

	// CeilingReconciliations counts max_leads mirror corrections
	CeilingReconciliations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_ceiling_reconciliations_total",
			Help:      "Stored plan ceilings corrected by reconciliation",
		},
	)

	// AdminLoginAttempts counts admin login attempts by result
	AdminLoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_login_attempts_total",
			Help:      "Admin login attempts by result",
		},
		[]string{"result"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveAdmission records one admission outcome and its duration.
func ObserveAdmission(outcome string, started time.Time) {
	LeadAdmissions.WithLabelValues(outcome).Inc()
	AdmissionDuration.Observe(time.Since(started).Seconds())
}

// ObserveInquiry records one quota pre-check.
func ObserveInquiry(canAccept bool) {
	QuotaInquiries.WithLabelValues(strconv.FormatBool(canAccept)).Inc()
}

// Middleware records request durations labelled by the matched route pattern.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		requestDuration.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler exposes the default Prometheus registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
