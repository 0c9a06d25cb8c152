package service

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/rs/cors"
)

// HealthzServer answers liveness probes. Until MarkReady is called it
// answers 503, so orchestrators wait for the first test tree load.
type HealthzServer struct {
	httpListener
	ready atomic.Bool
}

// Listen binds addr without serving yet.
func (h *HealthzServer) Listen(_ context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.Handle)
	return h.listen(addr, &http.Server{
		Handler: cors.New(cors.Options{AllowedOrigins: []string{"*"}}).Handler(mux),
		Addr:    addr,
	})
}

func (h *HealthzServer) Serve() error {
	return h.serve()
}

func (h *HealthzServer) Start(ctx context.Context, addr string) error {
	if err := h.Listen(ctx, addr); err != nil {
		return err
	}
	return h.Serve()
}

// MarkReady switches the probe to healthy.
func (h *HealthzServer) MarkReady() {
	h.ready.Store(true)
}

func (h *HealthzServer) Shutdown() error {
	return h.shutdown(context.Background())
}

func (h *HealthzServer) Handle(w http.ResponseWriter, r *http.Request) {
	log.Debug("Received health check request", "path", r.URL.Path, "ready", h.ready.Load())
	if !h.ready.Load() {
		http.Error(w, "loading", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK")) //nolint:errcheck
}
