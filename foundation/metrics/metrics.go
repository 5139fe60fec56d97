// Package metrics holds the prometheus collectors for the miner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HashAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "hash_attempts_total",
		Help:      "Total header hashes computed by solved searches.",
	})

	BlocksMined = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "blocks_mined_total",
		Help:      "Total blocks mined and validated.",
	})

	SearchesCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "searches_cancelled_total",
		Help:      "Total nonce searches stopped before a solution.",
	})

	TransactionsSelected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "transactions_selected_total",
		Help:      "Total mempool transactions included in mined blocks.",
	})

	TransactionsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "transactions_rejected_total",
		Help:      "Mempool transactions left out of a block by reason.",
	}, []string{"reason"})

	MempoolSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "blockminer",
		Name:      "mempool_size",
		Help:      "Number of unique transactions in the mempool.",
	})

	SearchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "blockminer",
		Name:      "search_duration_seconds",
		Help:      "Time spent searching for a nonce.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	Requests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "http_requests_total",
		Help:      "Total requests served by the inspection api.",
	})

	Errors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "blockminer",
		Name:      "http_errors_total",
		Help:      "Total inspection api requests that returned an error.",
	})
)

func init() {
	prometheus.MustRegister(
		HashAttempts,
		BlocksMined,
		SearchesCancelled,
		TransactionsSelected,
		TransactionsRejected,
		MempoolSize,
		SearchDuration,
		Requests,
		Errors,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
