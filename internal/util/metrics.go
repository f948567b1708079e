package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Total number of accounts registered",
	})

	LoginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logins_total",
		Help: "Total number of successful logins",
	})

	LoginsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logins_failed_total",
		Help: "Total number of failed logins",
	}, []string{"reason"})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of successful order checkouts",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CheckoutsFailedAfterConfirm = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_failed_after_confirm_total",
		Help: "Checkouts that failed after the order was already flipped to CONFIRMED",
	})

	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Total number of payment rows recorded",
	}, []string{"status"})

	DocumentsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "documents_generated_total",
		Help: "Total number of checkout invoices rendered",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Total number of notification events consumed",
	}, []string{"kind"})

	TransportRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transport_requests_total",
		Help: "Total number of request/reply calls",
	}, []string{"pattern", "outcome"})

	TransportRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "transport_request_latency_seconds",
		Help:    "Latency of request/reply calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"pattern"})

	TransportPublishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transport_publishes_total",
		Help: "Total number of fire-and-forget publishes",
	}, []string{"pattern", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
