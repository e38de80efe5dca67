// Package statusserver exposes an optional, off-by-default observability
// surface for the daemon: a health check and Prometheus metrics endpoint.
// It never participates in the dispatch path and is not a sink; it exists
// purely so an operator can probe "is the daemon up and what is it
// doing" without instrumenting the plugin stack itself. Grounded on the
// pack's ipiton-alert-history-service use of github.com/prometheus/client_golang
// and the github.com/go-chi/chi/v5 router.
package statusserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the counters/gauges the dispatcher and lifecycle update as
// events flow through the stack.
type Metrics struct {
	DispatchTotal   prometheus.Counter
	StageErrorTotal prometheus.Counter
	ActiveStacks    prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DispatchTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netlogd_dispatch_total",
			Help: "Number of times Propagate was invoked from a source stage.",
		}),
		StageErrorTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netlogd_stage_error_total",
			Help: "Number of stage interpret() calls that returned ERR.",
		}),
		ActiveStacks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netlogd_active_stacks",
			Help: "Number of plugin stacks currently running.",
		}),
	}
}

// Server is the optional HTTP surface bound to [global] status_addr.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// New builds a Server listening on addr with /healthz and /metrics
// registered against reg. It does not start accepting connections until
// Serve is called.
func New(addr string, reg *prometheus.Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &Server{
		httpServer: &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: ln,
	}, nil
}

// Addr returns the address the server is bound to, useful when addr was
// given as "127.0.0.1:0" in tests.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks accepting connections until the listener is closed via
// Shutdown.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
