// Package server exposes reconciliation over HTTP: per-order comparisons,
// the aggregated report, and sync control. JSON in, JSON out.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/report"
	"po-reconciliation-service/internal/syncer"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// OrderStore resolves order headers, normally the store
type OrderStore interface {
	Order(ctx context.Context, orderID string) (*models.OrderRecord, error)
}

// Reconciler runs one comparison, normally the comparer service
type Reconciler interface {
	CompareOrder(ctx context.Context, order *models.OrderRecord, opts models.FetchOptions) (*comparer.ComparisonResult, error)
}

// ReportGenerator builds the portfolio report, normally report.Generator
type ReportGenerator interface {
	Generate(ctx context.Context) (*report.Report, error)
}

// SyncRunner drives and inspects mirror syncs, normally the syncer
type SyncRunner interface {
	SyncAll(ctx context.Context) (*syncer.SyncResult, error)
	Status(ctx context.Context) (*syncer.StatusReport, error)
}

// Config holds HTTP server settings
type Config struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns the production defaults. The write timeout is
// generous because report generation reconciles the whole portfolio.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server routes HTTP requests to the reconciliation services
type Server struct {
	config     *Config
	orders     OrderStore
	reconciler Reconciler
	reports    ReportGenerator
	sync       SyncRunner
	logger     logger.Logger
	httpServer *http.Server
}

// New creates a server. A nil config gets the defaults.
func New(config *Config, orders OrderStore, rec Reconciler, reports ReportGenerator, sync SyncRunner, log logger.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	s := &Server{
		config:     config,
		orders:     orders,
		reconciler: rec,
		reports:    reports,
		sync:       sync,
		logger:     log.WithComponent("server"),
	}
	s.httpServer = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Router(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}/comparison", s.handleComparison).Methods(http.MethodGet)
	r.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)
	r.HandleFunc("/api/report/sync", s.handleSync).Methods(http.MethodPost)
	r.HandleFunc("/api/report/sync-status", s.handleSyncStatus).Methods(http.MethodGet)

	return r
}

// ListenAndServe runs the server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.config.Addr).Info("HTTP server listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]

	order, err := s.orders.Order(r.Context(), orderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := models.FetchOptions{
		ForceRefresh: r.URL.Query().Get("refresh") == "true",
	}
	result, err := s.reconciler.CompareOrder(r.Context(), order, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Generate(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := report.OutputFormat(r.URL.Query().Get("format"))
	if format == "" || format == report.FormatJSON {
		s.writeJSON(w, http.StatusOK, rep)
		return
	}
	if !format.IsValid() {
		s.writeError(w, r, errors.ValidationError(errors.CodeOutOfRange, "format", string(format), nil))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if format == report.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
	}
	if err := report.Write(rep, format, w); err != nil {
		s.logger.WithError(err).Error("Writing report response failed")
	}
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.SyncAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.sync.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Encoding response failed")
	}
}

// errorResponse is the wire shape of a failed request
type errorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error(), RequestID: requestID(r.Context())}

	if re, ok := errors.AsReconcilerError(err); ok {
		resp.Code = string(re.Code)
		resp.Suggestion = re.Suggestion
		switch re.Category {
		case errors.CategoryPrecondition, errors.CategoryValidation:
			status = http.StatusUnprocessableEntity
		case errors.CategoryFetch:
			status = http.StatusBadGateway
		case errors.CategoryStore:
			status = http.StatusInternalServerError
		case errors.CategoryConfiguration:
			status = http.StatusInternalServerError
		}
	}

	s.logger.WithError(err).WithFields(logger.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": resp.RequestID,
	}).Warn("Request failed")

	s.writeJSON(w, status, resp)
}
