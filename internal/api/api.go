package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"garment-portal-backend/internal/api/middleware"
	"garment-portal-backend/internal/config"
	"garment-portal-backend/internal/identity"
	"garment-portal-backend/internal/queue"
	"garment-portal-backend/internal/store"
)

const shutdownTimeout = 15 * time.Second

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

// Dependencies are handed to route registrars to build their endpoints.
type Dependencies struct {
	Gate  *identity.Gate
	Store store.Store
	Chat  config.ChatConfig
}

type Options struct {
	Name       string
	ListenAddr string
	Queue      *queue.RequestQueueManager
	Deps       Dependencies
	Logger     *zap.Logger
	CORS       middleware.CORSConfig
	// Registry defaults to the global Prometheus registry.
	Registry     *prometheus.Registry
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type APIServer struct {
	name                string
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	deps                Dependencies
	routeRegistrars     []RouteRegistrar
	metrics             *metrics
	logger              *zap.Logger
	cors                middleware.CORSConfig
	readTimeout         time.Duration
	writeTimeout        time.Duration
}

func NewAPIServer(opts Options, registrars ...RouteRegistrar) *APIServer {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Name == "" {
		opts.Name = "api"
	}

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}

	return &APIServer{
		name:                opts.Name,
		listenAddr:          opts.ListenAddr,
		requestQueueManager: opts.Queue,
		deps:                opts.Deps,
		routeRegistrars:     registrars,
		metrics:             newMetrics(reg, gatherer, opts.ListenAddr, opts.Queue),
		logger:              opts.Logger,
		cors:                opts.CORS,
		readTimeout:         opts.ReadTimeout,
		writeTimeout:        opts.WriteTimeout,
	}
}

// Routes builds the complete handler: registered routes, /metrics,
// Prometheus instrumentation and an otel server span per request.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	return otelhttp.NewHandler(s.metrics.instrument(mux), s.name)
}

// Run serves until ctx is cancelled, then shuts down gracefully and drains
// the request queue.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("server", s.name), zap.String("addr", s.listenAddr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		s.shutdownQueue()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down", zap.String("server", s.name))
	err := srv.Shutdown(shutdownCtx)
	s.shutdownQueue()
	if err != nil {
		return err
	}
	return nil
}

func (s *APIServer) shutdownQueue() {
	if s.requestQueueManager != nil {
		s.requestQueueManager.Shutdown()
	}
}

func (s *APIServer) Deps() Dependencies {
	return s.deps
}

func (s *APIServer) Logger() *zap.Logger {
	return s.logger
}
