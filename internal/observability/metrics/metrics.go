// Package metrics provides Prometheus instrumentation for elkstaking.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled      bool
	serviceName  string
	registerOnce sync.Once

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
	httpRateLimitedTotal prometheus.Counter

	// Chain metrics
	transactionsTotal *prometheus.CounterVec
	transactionTime   *prometheus.HistogramVec
	blocksMinedTotal  prometheus.Counter
	chainHeadNumber   prometheus.Gauge
	chainTimeOffset   prometheus.Gauge

	// Contract metrics
	contractDeployTotal  *prometheus.CounterVec
	tokenTransferTotal   *prometheus.CounterVec
	vaultOperationsTotal *prometheus.CounterVec
)

// Init initializes the metrics system. Collectors are registered once per
// process, so Init may be called again (tests) to toggle recording.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}
	registerOnce.Do(register)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

func register() {
	// HTTP request counter
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration histogram
	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)

	transactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_transactions_total",
			Help: "Total number of transactions by method and status",
		},
		[]string{"method", "status"},
	)

	transactionTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_transaction_duration_seconds",
			Help:    "Time spent executing a transaction, including the storage commit",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	blocksMinedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chain_blocks_mined_total",
			Help: "Total number of blocks mined",
		},
	)

	chainHeadNumber = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chain_head_block_number",
			Help: "Number of the latest block",
		},
	)

	chainTimeOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chain_time_offset_seconds",
			Help: "Seconds the chain clock runs ahead of the wall clock",
		},
	)

	contractDeployTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_deploy_total",
			Help: "Total number of contract deployments",
		},
		[]string{"kind", "status"},
	)

	tokenTransferTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_transfer_total",
			Help: "Total number of token transfers",
		},
		[]string{"status"},
	)

	vaultOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Total number of vault operations",
		},
		[]string{"operation", "status"},
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
