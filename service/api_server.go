package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/ethereum-optimism/infra/cppunit-explorer/adapter"
	"github.com/ethereum-optimism/infra/cppunit-explorer/events"
	"github.com/ethereum-optimism/infra/cppunit-explorer/metrics"
	"github.com/ethereum-optimism/infra/cppunit-explorer/types"
)

const (
	defaultWSWriteTimeout = 10 * time.Second
	maxRequestBodyBytes   = 1 << 20
)

// Explorer is the part of the adapter the API serves.
type Explorer interface {
	Tree() types.TestSuiteInfo
	Load(ctx context.Context) (types.TestSuiteInfo, error)
	Run(ctx context.Context, ids []string) (*types.RunResult, error)
	Cancel() error
	LastRun() *types.RunResult
}

type apiResponse struct {
	StatusCode int    `json:"-"`
	Details    string `json:"details,omitempty"`
}

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Tests []string `json:"tests"`
}

// APIServer serves the test tree, accepts load, run and cancel requests and
// streams events over a WebSocket.
type APIServer struct {
	httpListener
	ctx         context.Context
	explorer    Explorer
	broadcaster *events.Broadcaster
	upgrader    websocket.Upgrader
	log         log.Logger
}

func NewAPIServer(explorer Explorer, broadcaster *events.Broadcaster, logger log.Logger) *APIServer {
	if logger == nil {
		logger = log.Root()
	}
	return &APIServer{
		explorer:    explorer,
		broadcaster: broadcaster,
		log:         logger,
		upgrader: websocket.Upgrader{
			// The API is meant for local tooling, including browser extensions.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the routed API handler.
func (s *APIServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleAPIHealthz).Methods(http.MethodGet)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tests", s.handleTests).Methods(http.MethodGet)
	api.HandleFunc("/tests/{id}", s.handleTest).Methods(http.MethodGet)
	api.HandleFunc("/load", s.handleLoad).Methods(http.MethodPost)
	api.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/last", s.handleLastRun).Methods(http.MethodGet)
	api.HandleFunc("/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	})
	return c.Handler(r)
}

// Listen binds addr. Requests are served with ctx as their base context.
func (s *APIServer) Listen(ctx context.Context, addr string) error {
	s.ctx = ctx
	return s.listen(addr, &http.Server{
		Handler:           s.Handler(),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
	})
}

func (s *APIServer) Serve() error {
	return s.serve()
}

func (s *APIServer) Start(ctx context.Context, addr string) error {
	if err := s.Listen(ctx, addr); err != nil {
		return err
	}
	return s.Serve()
}

func (s *APIServer) Shutdown() error {
	return s.shutdown(context.Background())
}

func (s *APIServer) baseContext() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}

// handleAPIHealthz answers OK as soon as the API is served; readiness is
// reported by the healthz server.
func handleAPIHealthz(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK")) //nolint:errcheck
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write API response", "err", err)
	}
}

func writeAPIResponse(w http.ResponseWriter, response apiResponse) {
	writeJSON(w, response.StatusCode, response)
}

func (s *APIServer) handleTests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.explorer.Tree())
}

func (s *APIServer) handleTest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tree := s.explorer.Tree()
	if test, ok := tree.FindTest(id); ok {
		writeJSON(w, http.StatusOK, test)
		return
	}
	for _, suite := range tree.Suites {
		if suite.ID == id {
			writeJSON(w, http.StatusOK, suite)
			return
		}
	}
	writeAPIResponse(w, apiResponse{StatusCode: http.StatusNotFound, Details: fmt.Sprintf("test %q not found", id)})
}

func (s *APIServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	tree, err := s.explorer.Load(r.Context())
	if err != nil && errors.Is(err, context.Canceled) {
		writeAPIResponse(w, apiResponse{StatusCode: http.StatusServiceUnavailable, Details: err.Error()})
		return
	}
	if err != nil {
		// Partial loads still return the tree.
		s.log.Warn("Load finished with errors", "err", err)
		metrics.RecordErrorDetails("api_load", err)
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *APIServer) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeAPIResponse(w, apiResponse{StatusCode: http.StatusBadRequest, Details: fmt.Sprintf("invalid run request: %v", err)})
		return
	}
	if len(req.Tests) == 0 {
		writeAPIResponse(w, apiResponse{StatusCode: http.StatusBadRequest, Details: "no tests requested"})
		return
	}

	// The run outlives the request; its progress is streamed as events.
	go func() {
		if _, err := s.explorer.Run(s.baseContext(), req.Tests); err != nil {
			s.log.Warn("Run finished with errors", "err", err)
		}
	}()
	writeAPIResponse(w, apiResponse{StatusCode: http.StatusAccepted, Details: "run requested"})
}

func (s *APIServer) handleLastRun(w http.ResponseWriter, r *http.Request) {
	last := s.explorer.LastRun()
	if last == nil {
		writeAPIResponse(w, apiResponse{StatusCode: http.StatusNotFound, Details: "no run completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

func (s *APIServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.explorer.Cancel(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, adapter.ErrNoRun) {
			status = http.StatusConflict
		}
		writeAPIResponse(w, apiResponse{StatusCode: status, Details: err.Error()})
		return
	}
	writeAPIResponse(w, apiResponse{StatusCode: http.StatusOK, Details: "run canceled"})
}

func (s *APIServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	evs, unsubscribe := s.broadcaster.Subscribe(events.DefaultSubscriberBuffer)
	defer unsubscribe()

	// Drain the client side so close frames are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.log.Debug("Event subscriber connected", "remote", r.RemoteAddr)
	for {
		select {
		case <-closed:
			return
		case <-s.baseContext().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		case ev, ok := <-evs:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(defaultWSWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug("Event subscriber gone", "err", err)
				return
			}
		}
	}
}
