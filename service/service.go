package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
)

const (
	HealthzHost = "0.0.0.0"
	HealthzPort = 8080

	MetricsHost = "0.0.0.0"
	MetricsPort = 7300

	APIHost = "127.0.0.1"
	APIPort = 8765
)

// Config holds listen addresses. A zero port disables that server.
type Config struct {
	HealthzAddr string
	HealthzPort int
	MetricsAddr string
	MetricsPort int
	APIAddr     string
	APIPort     int
}

func DefaultConfig() Config {
	return Config{
		HealthzAddr: HealthzHost,
		HealthzPort: HealthzPort,
		MetricsAddr: MetricsHost,
		MetricsPort: MetricsPort,
		APIAddr:     APIHost,
		APIPort:     APIPort,
	}
}

type Service struct {
	config  Config
	log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer
	API     *APIServer
}

// New creates the service. api may be nil when the API is not served.
func New(cfg Config, api *APIServer, logger log.Logger) *Service {
	if logger == nil {
		logger = log.Root()
	}
	return &Service{
		config:  cfg,
		log:     logger,
		Healthz: &HealthzServer{},
		Metrics: &MetricsServer{},
		API:     api,
	}
}

type server interface {
	Listen(ctx context.Context, addr string) error
	Serve() error
}

// start binds synchronously so a Shutdown right after Start finds the
// listener; only Serve runs in the background.
func (s *Service) start(ctx context.Context, name string, srv server, host string, port int) {
	if port == 0 {
		return
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	s.log.Info("starting "+name+" server", "addr", addr)
	if err := srv.Listen(ctx, addr); err != nil {
		s.log.Error("error starting "+name+" server", "err", err)
		metrics.RecordErrorDetails("error starting "+name+" server", err)
		return
	}
	go func() {
		if err := srv.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(name+" server failed", "err", err)
			metrics.RecordErrorDetails(name+" server failed", err)
		}
	}()
}

func (s *Service) Start(ctx context.Context) {
	s.log.Info("service starting")
	s.start(ctx, "healthz", s.Healthz, s.config.HealthzAddr, s.config.HealthzPort)
	s.start(ctx, "metrics", s.Metrics, s.config.MetricsAddr, s.config.MetricsPort)
	if s.API != nil {
		s.start(ctx, "api", s.API, s.config.APIAddr, s.config.APIPort)
	}
	s.log.Info("service started")
}

func (s *Service) Shutdown() {
	s.log.Info("service shutting down")

	_ = s.Healthz.Shutdown()
	s.log.Info("healthz stopped")

	_ = s.Metrics.Shutdown()
	s.log.Info("metrics stopped")

	if s.API != nil {
		_ = s.API.Shutdown()
		s.log.Info("api stopped")
	}

	s.log.Info("service stopped")
}
