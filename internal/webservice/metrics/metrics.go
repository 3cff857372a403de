// Package metrics provides the Prometheus middlewares of the web service.
//
// Requests are labeled with the route template that matched them ("/contracts/{id}")
// rather than with the raw path, so that ids don't create new series.
package metrics

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type label string

// LabelRoute is the context key of the route label.
const LabelRoute label = "route"

// unmatched labels requests no route accepted.
const unmatched = "unmatched"

// EndpointMiddleware collects request metrics of the routes of a module.
type EndpointMiddleware struct {
	buckets  []float64
	registry prometheus.Registerer
}

// NewEndpointMiddleware creates an EndpointMiddleware registering its collectors in registry.
func NewEndpointMiddleware(registry prometheus.Registerer) *EndpointMiddleware {
	return &EndpointMiddleware{
		// Up to 10.24s.
		buckets:  prometheus.ExponentialBuckets(0.005, 2, 12),
		registry: registry,
	}
}

// Wrap returns a mux middleware counting, timing and sizing the requests of the module called name.
func (m *EndpointMiddleware) Wrap(name string) mux.MiddlewareFunc {
	reg := prometheus.WrapRegistererWith(prometheus.Labels{"module": name}, m.registry)
	labels := []string{"method", "code", string(LabelRoute)}

	requestsTotal := promauto.With(reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_endpoint_requests_total",
			Help: "Tracks the number of HTTP requests to the module endpoints.",
		}, labels,
	)
	requestDuration := promauto.With(reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_endpoint_request_duration_seconds",
			Help:    "Tracks the latencies of HTTP requests to the module endpoints.",
			Buckets: m.buckets,
		}, labels,
	)
	requestSize := promauto.With(reg).NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "http_endpoint_request_size_bytes",
			Help: "Tracks the size of HTTP requests to the module endpoints.",
		}, labels,
	)

	routeLabel := promhttp.WithLabelFromCtx(string(LabelRoute), routeFromCtx)
	return func(next http.Handler) http.Handler {
		instrumented := promhttp.InstrumentHandlerCounter(requestsTotal,
			promhttp.InstrumentHandlerDuration(requestDuration,
				promhttp.InstrumentHandlerRequestSize(requestSize, next, routeLabel),
				routeLabel),
			routeLabel)
		return HandlerApplyLabels(instrumented)
	}
}

// MuxMiddleware counts every request reaching the router, matched or not.
type MuxMiddleware struct {
	registry prometheus.Registerer
}

// NewMuxMiddleware creates a MuxMiddleware registering its collector in registry.
func NewMuxMiddleware(registry prometheus.Registerer) *MuxMiddleware {
	return &MuxMiddleware{registry: registry}
}

// Wrap instruments handler, the whole router of the service.
func (m *MuxMiddleware) Wrap(handler http.Handler) http.Handler {
	requestsTotal := promauto.With(m.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_mux_requests_total",
			Help: "Tracks the number of HTTP requests to the router.",
		}, []string{"method", "code"},
	)
	return promhttp.InstrumentHandlerCounter(requestsTotal, handler)
}

func routeFromCtx(ctx context.Context) string {
	if route, ok := ctx.Value(LabelRoute).(string); ok {
		return route
	}
	return unmatched
}

// ApplyLabels stores the template of the matched route in the request context.
func ApplyLabels(r *http.Request) {
	route := unmatched
	if cur := mux.CurrentRoute(r); cur != nil {
		if tpl, err := cur.GetPathTemplate(); err == nil {
			route = tpl
		}
	}
	*r = *r.WithContext(context.WithValue(r.Context(), LabelRoute, route))
}

// HandlerApplyLabels applies the labels before calling handler.
func HandlerApplyLabels(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ApplyLabels(r)
		handler.ServeHTTP(w, r)
	})
}
