// Package metrics exposes an optional Prometheus /metrics endpoint for a
// running spectrometer, grounded on the teacher's handlePrometheusMetrics
// (main.go) and its promauto-built GaugeVec/CounterVec/Histogram fields.
// The teacher tracks dozens of SDR-web-server-specific series; a
// spectrometer process has a much narrower set worth exporting: how much
// raw data each source/core pair is being fed, how many spectra have been
// emitted, and how long each worker run takes.
package metrics

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the process's Prometheus collectors. A nil *Registry is
// valid everywhere it's consulted (dispatcher, worker callers check for
// nil before calling), so metrics stay fully optional.
type Registry struct {
	refillBytes      *prometheus.CounterVec
	refillShortReads *prometheus.CounterVec
	refillDuration   *prometheus.HistogramVec

	spectraEmitted *prometheus.CounterVec
	workerBusy     *prometheus.HistogramVec

	srv *http.Server
}

// New builds a Registry and, if addr is non-empty, starts an HTTP server
// exposing it on /metrics. Call Close to shut the server down.
func New(addr string) (*Registry, error) {
	r := &Registry{
		refillBytes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swspectrometer_refill_bytes_total",
				Help: "Total raw bytes read into double-buffers, by core and source.",
			},
			[]string{"core", "source"},
		),
		refillShortReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swspectrometer_refill_short_reads_total",
				Help: "Refill calls that returned zero bytes, by core and source.",
			},
			[]string{"core", "source"},
		),
		refillDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swspectrometer_refill_seconds",
				Help:    "Time spent reading one double-buffer slot, by source.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		spectraEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swspectrometer_spectra_emitted_total",
				Help: "Integrated spectra written to sinks, by output kind (auto, xpol, pcal).",
			},
			[]string{"kind"},
		),
		workerBusy: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swspectrometer_worker_run_seconds",
				Help:    "Wall time of one worker Dispatch-to-FFTDONE run, by core.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"core"},
		),
	}

	if addr == "" {
		return r, nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	r.srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := r.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics: server on %s: %v", addr, err)
		}
	}()
	return r, nil
}

// ObserveRefill records one Source.Read call's outcome for core/src.
func (r *Registry) ObserveRefill(core, src, n int) {
	if r == nil {
		return
	}
	c, s := strconv.Itoa(core), strconv.Itoa(src)
	r.refillBytes.WithLabelValues(c, s).Add(float64(n))
	if n == 0 {
		r.refillShortReads.WithLabelValues(c, s).Inc()
	}
}

// ObserveRefillDuration records how long one double-buffer refill took.
func (r *Registry) ObserveRefillDuration(src int, d time.Duration) {
	if r == nil {
		return
	}
	r.refillDuration.WithLabelValues(strconv.Itoa(src)).Observe(d.Seconds())
}

// ObserveWorkerRun records how long one worker Dispatch/Join round trip
// took for core.
func (r *Registry) ObserveWorkerRun(core int, d time.Duration) {
	if r == nil {
		return
	}
	r.workerBusy.WithLabelValues(strconv.Itoa(core)).Observe(d.Seconds())
}

// IncSpectraEmitted records n spectra written to a sink of the given kind
// ("auto", "xpol", or "pcal").
func (r *Registry) IncSpectraEmitted(kind string, n int) {
	if r == nil {
		return
	}
	r.spectraEmitted.WithLabelValues(kind).Add(float64(n))
}

// Close shuts down the metrics HTTP server, if one was started.
func (r *Registry) Close() error {
	if r == nil || r.srv == nil {
		return nil
	}
	if err := r.srv.Close(); err != nil {
		return fmt.Errorf("metrics: closing server: %w", err)
	}
	return nil
}
