package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorslot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	GrantsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_credit_grants_created_total",
			Help: "Total number of credit grants created",
		},
		[]string{"source", "product"},
	)

	CreditsConsumedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorslot_credits_consumed_total",
			Help: "Total number of credits debited from grants",
		},
	)

	CreditsRestoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorslot_credits_restored_total",
			Help: "Total number of credits restored to grants",
		},
	)

	CouponRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_coupon_redemptions_total",
			Help: "Total number of coupon redemption attempts",
		},
		[]string{"outcome"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_bookings_total",
			Help: "Total number of bookings",
		},
		[]string{"status"},
	)

	BookingCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorslot_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
	)

	BookingNoShowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorslot_booking_no_shows_total",
			Help: "Total number of bookings marked as no-show",
		},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorslot_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutorslot_email_queue_length",
			Help: "Current length of email queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordGrant(source, product string) {
	GrantsCreatedTotal.WithLabelValues(source, product).Inc()
}

func RecordConsume(count int) {
	CreditsConsumedTotal.Add(float64(count))
}

func RecordRestore(count int) {
	CreditsRestoredTotal.Add(float64(count))
}

func RecordCouponRedemption(outcome string) {
	CouponRedemptionsTotal.WithLabelValues(outcome).Inc()
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordBookingCancellation() {
	BookingCancellationsTotal.Inc()
}

func RecordBookingNoShow() {
	BookingNoShowsTotal.Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}
