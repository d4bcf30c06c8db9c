package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/onflow/evm-p2p-fetch/module/component"
	"github.com/onflow/evm-p2p-fetch/module/irrecoverable"
)

const shutdownTimeout = 5 * time.Second

// Server is the http server that will be serving the /metrics request for prometheus
type Server struct {
	*component.ComponentManager
	server          *http.Server
	log             zerolog.Logger
	shutdownTimeout time.Duration
}

// NewServer creates a new server that will start on the specified port,
// and responds to only the `/metrics` endpoint
func NewServer(log zerolog.Logger, port uint, gatherer prometheus.Gatherer) *Server {
	addr := ":" + strconv.Itoa(int(port))

	mux := http.NewServeMux()
	endpoint := "/metrics"
	mux.Handle(endpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	m := &Server{
		server:          &http.Server{Addr: addr, Handler: mux},
		log:             log.With().Str("component", "metrics-server").Str("address", addr).Logger(),
		shutdownTimeout: shutdownTimeout,
	}
	m.ComponentManager = component.NewComponentManager(m.serve)

	return m
}

func (m *Server) serve(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	listener, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		ctx.Throw(err)
	}
	m.log.Info().Str("endpoint", "/metrics").Msg("metrics server started")
	ready()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- m.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		m.log.Err(err).Msg("metrics server failed")
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.log.Warn().Err(err).Msg("metrics server shutdown failed")
		_ = m.server.Close()
	}

	// http.ErrServerClosed is returned when Close or Shutdown is called
	// we don't consider this an error, so print this with debug level instead
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.log.Err(err).Msg("metrics server failed")
		return
	}
	m.log.Debug().Msg("metrics server shutdown")
}
