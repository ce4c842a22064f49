package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/buoy-ingest-service/internal/domain"
)

// maxRequestBody caps POST /datasets payloads.
const maxRequestBody = 64 << 10

// URIIngester ingests a single file URI.
type URIIngester interface {
	Ingest(ctx context.Context, uri string) (domain.IngestedEvent, error)
}

// Server exposes health, readiness, metrics and ingest HTTP endpoints.
type Server struct {
	httpServer *http.Server
	ingester   URIIngester
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes, plus POST /datasets when ingester is non-nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, ingester URIIngester, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Ingesting a remote file includes its download.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		ingester: ingester,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if ingester != nil {
		mux.HandleFunc("POST /datasets", s.handleIngest)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type ingestRequest struct {
	URI string `json:"uri"`
}

// handleIngest ingests the file named in the request body. It answers 201
// for a new dataset and 200 when the URI was already catalogued.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	req.URI = strings.TrimSpace(req.URI)
	if req.URI == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	event, err := s.ingester.Ingest(r.Context(), req.URI)
	if err != nil {
		status := ingestErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("ingest failed", "uri", req.URI, "error", err)
		} else {
			s.logger.Warn("ingest rejected", "uri", req.URI, "error", err)
		}
		writeError(w, status, err.Error())
		return
	}

	status := http.StatusOK
	if event.Created {
		status = http.StatusCreated
	}
	sharedobs.WriteJSON(w, status, event)
}

// ingestErrorStatus maps file problems to 422 and everything else to 500.
func ingestErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrOpen),
		errors.Is(err, domain.ErrMissingVariable),
		errors.Is(err, domain.ErrMissingAttribute),
		errors.Is(err, domain.ErrNoEntryID),
		errors.Is(err, domain.ErrUnsupportedURI):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
