package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Hasil sinkronisasi pengaturan vendor.
const (
	SyncResultSynced  = "synced"
	SyncResultPartial = "partial"
)

// Metrics mengumpulkan metrik Prometheus untuk API back-office.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	vendorSync      *prometheus.CounterVec
}

// NewMetrics membuat registry tersendiri berisi metrik HTTP, hasil
// sinkronisasi vendor, serta collector runtime Go dan proses.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Jumlah permintaan HTTP berdasarkan method, route dan status.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "Durasi permintaan HTTP per route.",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route"}),
		vendorSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_vendor_setting_sync_total",
			Help: "Jumlah penyimpanan pengaturan vendor berdasarkan hasil propagasi.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.vendorSync,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// Label diinisialisasi agar rasio partial dapat dihitung sejak awal.
	m.vendorSync.WithLabelValues(SyncResultSynced)
	m.vendorSync.WithLabelValues(SyncResultPartial)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP. Route diambil
// dari pola chi setelah handler selesai agar label tetap berkardinalitas rendah.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveVendorSync mencatat hasil propagasi satu penyimpanan pengaturan vendor.
func (m *Metrics) ObserveVendorSync(result string) {
	if m == nil {
		return
	}
	m.vendorSync.WithLabelValues(result).Inc()
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
