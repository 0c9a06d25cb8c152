package service

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type MetricsServer struct {
	httpListener
}

func (m *MetricsServer) Listen(_ context.Context, addr string) error {
	hdlr := http.NewServeMux()
	hdlr.Handle("/metrics", promhttp.Handler())
	return m.listen(addr, &http.Server{
		Handler: hdlr,
		Addr:    addr,
	})
}

func (m *MetricsServer) Serve() error {
	return m.serve()
}

func (m *MetricsServer) Start(ctx context.Context, addr string) error {
	if err := m.Listen(ctx, addr); err != nil {
		return err
	}
	return m.Serve()
}

func (m *MetricsServer) Shutdown() error {
	return m.shutdown(context.Background())
}
