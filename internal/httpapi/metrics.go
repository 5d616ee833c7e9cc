package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	return &httpMetrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audiograb",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by handler, method and status code.",
		}, []string{"handler", "code", "method"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "audiograb",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Requests currently being served.",
		}),
	}
}

func (m *httpMetrics) instrument(handler string, next http.Handler) http.Handler {
	counter := m.requests.MustCurryWith(prometheus.Labels{"handler": handler})
	return promhttp.InstrumentHandlerInFlight(m.inFlight, promhttp.InstrumentHandlerCounter(counter, next))
}
