package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maos_checkout_total",
		Help: "Попытки оформления подписки по плану, способу оплаты и результату.",
	}, []string{"plan", "method", "result"})

	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maos_alerts_created_total",
		Help: "Созданные уведомления по правилу.",
	}, []string{"rule"})

	PushSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maos_push_sent_total",
		Help: "Отправленные push-уведомления по результату.",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "maos_http_requests_total",
		Help: "HTTP-запросы по методу, маршруту и статусу.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maos_http_request_duration_seconds",
		Help:    "Длительность обработки HTTP-запросов.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
