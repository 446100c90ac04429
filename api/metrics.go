package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulsepoint/eris-api/databases"
	"github.com/pulsepoint/eris-api/dispatch"
)

var (
	// httpRequests counts handled requests.
	// Labels: method, route (the mux path template), status
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eris",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eris",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	commandsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eris",
		Subsystem: "engine",
		Name:      "commands_applied_total",
		Help:      "Commands applied by the dispatch engine",
	}, []string{"command"})

	auditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eris",
		Subsystem: "engine",
		Name:      "audit_entries_total",
		Help:      "Audit entries recorded, by action",
	}, []string{"action"})

	openCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eris",
		Subsystem: "engine",
		Name:      "open_calls",
		Help:      "Calls neither completed nor cancelled",
	})

	unsyncedPCRs = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eris",
		Subsystem: "engine",
		Name:      "unsynced_pcrs",
		Help:      "Patient care records waiting for reconciliation",
	})

	online = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eris",
		Subsystem: "engine",
		Name:      "online",
		Help:      "1 while the central system is reachable",
	})

	// storeOps measures state store calls.
	// Labels: operation (load, save), status (ok, error)
	storeOps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eris",
		Subsystem: "store",
		Name:      "operation_duration_seconds",
		Help:      "State store call latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation", "status"})
)

// MetricsHandler serves the prometheus registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// MetricsCommitHook records every applied command
func MetricsCommitHook(c dispatch.Commit) {
	commandsApplied.WithLabelValues(c.Command).Inc()
	for _, e := range c.Entries {
		auditEntries.WithLabelValues(e.Action).Inc()
	}

	open := 0
	for _, call := range c.State.Calls {
		if call.Open() {
			open++
		}
	}
	openCalls.Set(float64(open))
	unsyncedPCRs.Set(float64(c.State.UnsyncedPCRs()))
	if c.State.Online {
		online.Set(1)
	} else {
		online.Set(0)
	}
}

type instrumentedStore struct {
	next databases.StateDatabase
}

// InstrumentStore times every call made to store
func InstrumentStore(store databases.StateDatabase) databases.StateDatabase {
	return instrumentedStore{next: store}
}

func (s instrumentedStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := s.next.Load(ctx, key)
	observeStore("load", start, err)
	return value, ok, err
}

func (s instrumentedStore) Save(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := s.next.Save(ctx, key, value)
	observeStore("save", start, err)
	return err
}

func observeStore(operation string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	storeOps.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}
