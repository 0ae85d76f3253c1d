package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var GithubRequestCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sitewise",
		Name:      "github_requests_total",
		Help:      "Total number of GitHub API requests by method and response status",
	}, []string{"method", "status"},
)

var RateLimitedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sitewise",
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter",
	}, []string{"route"},
)

var VersionsSavedCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sitewise",
		Name:      "versions_saved_total",
		Help:      "Total number of page versions written per backend",
	}, []string{"backend"},
)

var PageSavesCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sitewise",
		Name:      "page_saves_total",
		Help:      "Total number of pages.json commits by result",
	}, []string{"result"},
)

func init() {
	prometheus.MustRegister(GithubRequestCounter, RateLimitedCounter, VersionsSavedCounter, PageSavesCounter)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
