package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/report"
	"po-reconciliation-service/internal/syncer"
	"po-reconciliation-service/pkg/errors"
)

type fakeOrderStore struct{ orders map[string]*models.OrderRecord }

func (f *fakeOrderStore) Order(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, errors.StoreError(errors.CodeQueryFailed, "load order", fmt.Errorf("order %s not found", orderID))
	}
	return order, nil
}

type fakeReconciler struct {
	result *comparer.ComparisonResult
	err    error
}

func (f *fakeReconciler) CompareOrder(ctx context.Context, order *models.OrderRecord, opts models.FetchOptions) (*comparer.ComparisonResult, error) {
	return f.result, f.err
}

type fakeReports struct{ report *report.Report }

func (f *fakeReports) Generate(ctx context.Context) (*report.Report, error) {
	return f.report, nil
}

type fakeSyncRunner struct{}

func (f *fakeSyncRunner) SyncAll(ctx context.Context) (*syncer.SyncResult, error) {
	return &syncer.SyncResult{Total: 3, Synced: 3}, nil
}

func (f *fakeSyncRunner) Status(ctx context.Context) (*syncer.StatusReport, error) {
	return &syncer.StatusReport{Cached: 2, Missing: 1, Total: 3}, nil
}

func newTestServer(rec *fakeReconciler) *Server {
	orders := &fakeOrderStore{orders: map[string]*models.OrderRecord{
		"o1": {ID: "o1", Number: "PO-1001", ExternalOrderID: "ext-1"},
	}}
	reports := &fakeReports{report: report.Build(nil, nil)}
	return New(nil, orders, rec, reports, &fakeSyncRunner{}, nil)
}

func TestComparisonEndpoint(t *testing.T) {
	rec := &fakeReconciler{result: &comparer.ComparisonResult{
		OrderNumber: "PO-1001",
		Summary:     comparer.Summary{TotalItems: 1, UnchangedCount: 1},
	}}
	srv := newTestServer(rec)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/o1/comparison", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("Expected a request id header")
	}

	var result comparer.ComparisonResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("Unexpected decode error: %v", err)
	}
	if result.OrderNumber != "PO-1001" {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestComparisonPreconditionMapsTo422(t *testing.T) {
	rec := &fakeReconciler{err: errors.PreconditionError(errors.CodeMissingOrderID, "PO-1001")}
	srv := newTestServer(rec)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/o1/comparison", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), string(errors.CodeMissingOrderID)) {
		t.Errorf("Expected error code in body: %s", w.Body.String())
	}
}

func TestComparisonFetchFailureMapsTo502(t *testing.T) {
	rec := &fakeReconciler{err: errors.FetchError(errors.CodeRequestFailed, "/lines", fmt.Errorf("timeout"))}
	srv := newTestServer(rec)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/o1/comparison", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", w.Code)
	}
}

func TestReportEndpointFormats(t *testing.T) {
	srv := newTestServer(&fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/api/report", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/report?format=csv", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected CSV content type, got %s", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/report?format=xml", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected unknown format rejected with 422, got %d", w.Code)
	}
}

func TestSyncEndpoints(t *testing.T) {
	srv := newTestServer(&fakeReconciler{})

	req := httptest.NewRequest(http.MethodPost, "/api/report/sync", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"synced":3`) {
		t.Errorf("Unexpected sync body: %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/report/sync-status", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"cached":2`) {
		t.Errorf("Unexpected status body: %s", w.Body.String())
	}

	// Sync is a mutation; GET must not trigger it
	req = httptest.NewRequest(http.MethodGet, "/api/report/sync", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for GET sync, got %d", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(&fakeReconciler{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "caller-supplied-id")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "caller-supplied-id" {
		t.Errorf("Expected caller request id echoed, got %q", got)
	}
}
