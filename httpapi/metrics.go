package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instapics_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "instapics_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	postsAddedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "instapics_posts_added_total",
			Help: "Posts published through the upload flow",
		},
	)

	likesToggledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instapics_likes_toggled_total",
			Help: "Like toggles by resulting state",
		},
		[]string{"state"},
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "instapics_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func recordLike(liked bool) {
	if liked {
		likesToggledTotal.WithLabelValues("liked").Inc()
	} else {
		likesToggledTotal.WithLabelValues("unliked").Inc()
	}
}
