package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	StationsLoaded prometheus.Gauge
	TripsLoaded    prometheus.Gauge
	ReportRows     prometheus.Counter

	QueryDuration *prometheus.HistogramVec // question label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	StoreWrites *prometheus.CounterVec // backend label: postgres|sqlite

	APIRequests *prometheus.CounterVec // route, code labels
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bikeshare_stations_loaded",
			Help: "Number of stations read from the station file.",
		}),
		TripsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bikeshare_trips_loaded",
			Help: "Number of trips read from the trip file.",
		}),
		ReportRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bikeshare_report_rows_total",
			Help: "Total station report rows built.",
		}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bikeshare_query_duration_seconds",
			Help:    "Duration of analytical queries.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}, []string{"question"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bikeshare_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bikeshare_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bikeshare_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		StoreWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bikeshare_store_rows_written_total",
			Help: "Report rows written to a database.",
		}, []string{"backend"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bikeshare_api_requests_total",
			Help: "Query API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		c.StationsLoaded, c.TripsLoaded, c.ReportRows,
		c.QueryDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.StoreWrites, c.APIRequests,
	)
	return c
}

// ObserveQuery records how long one question took.
func (c *Collector) ObserveQuery(name string, d time.Duration) {
	c.QueryDuration.WithLabelValues(name).Observe(d.Seconds())
}

// Publisher metrics hooks.
func (c *Collector) IncPublished()    { c.NATSPublished.Inc() }
func (c *Collector) IncPublishError() { c.NATSPublishErrs.Inc() }
func (c *Collector) SetConnected(v bool) {
	if v {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

// AddStoreWrites counts rows persisted by a backend.
func (c *Collector) AddStoreWrites(backend string, n int) {
	c.StoreWrites.WithLabelValues(backend).Add(float64(n))
}

// ObserveRequest counts one API response.
func (c *Collector) ObserveRequest(route, code string) {
	c.APIRequests.WithLabelValues(route, code).Inc()
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
