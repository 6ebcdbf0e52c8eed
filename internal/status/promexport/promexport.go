// Package promexport periodically snapshots an internal/status.Registry
// into Prometheus gauges, exposed on an HTTP /metrics endpoint. This is
// additive, cold-path instrumentation; the in-process get_status query
// path never depends on it.
package promexport

import (
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voidtrance/vortex/internal/status"
)

// Exporter mirrors a status.Registry's int and float metrics into a
// dedicated Prometheus registry on a fixed interval.
type Exporter struct {
	src      *status.Registry
	reg      *prometheus.Registry
	interval time.Duration

	intGauge   *prometheus.GaugeVec
	floatGauge *prometheus.GaugeVec
	boolGauge  *prometheus.GaugeVec

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates an Exporter that polls src every interval.
func New(src *status.Registry, interval time.Duration) *Exporter {
	reg := prometheus.NewRegistry()

	e := &Exporter{
		src:      src,
		reg:      reg,
		interval: interval,
		stop:     make(chan struct{}),
		intGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vortex", Name: "ints",
		}, []string{"metric"}),
		floatGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vortex", Name: "floats",
		}, []string{"metric"}),
		boolGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vortex", Name: "bools",
		}, []string{"metric"}),
	}
	reg.MustRegister(e.intGauge, e.floatGauge, e.boolGauge)
	return e
}

// Start launches the background snapshot loop and the HTTP /metrics
// handler on addr. Returns once the listener is accepting connections, or
// an error if it could not bind.
func (e *Exporter) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		_ = srv.Serve(ln)
	}()
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stop:
				_ = srv.Close()
				return
			case <-ticker.C:
				e.poll()
			}
		}
	}()

	return nil
}

// Stop halts the snapshot loop and HTTP server and waits for both to exit.
func (e *Exporter) Stop() {
	close(e.stop)
	e.wg.Wait()
}

func (e *Exporter) poll() {
	e.src.Ints.Range(func(key string, ptr *atomic.Int64) {
		e.intGauge.WithLabelValues(key).Set(float64(ptr.Load()))
	})
	e.src.Floats.Range(func(key string, ptr *status.AtomicFloat) {
		e.floatGauge.WithLabelValues(key).Set(ptr.Get())
	})
	e.src.Bools.Range(func(key string, ptr *atomic.Bool) {
		v := 0.0
		if ptr.Load() {
			v = 1.0
		}
		e.boolGauge.WithLabelValues(key).Set(v)
	})
}
