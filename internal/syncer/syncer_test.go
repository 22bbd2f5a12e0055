package syncer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"po-reconciliation-service/internal/models"
)

type fakeFetcher struct {
	lines  map[string][]models.RemoteLineRecord
	errors map[string]error
	calls  int
}

func (f *fakeFetcher) OrderLines(ctx context.Context, externalOrderID string, opts models.FetchOptions) ([]models.RemoteLineRecord, error) {
	f.calls++
	if err := f.errors[externalOrderID]; err != nil {
		return nil, err
	}
	return f.lines[externalOrderID], nil
}

type fakeMirror struct {
	orders   []models.OrderRecord
	upserted map[string][]models.RemoteLineRecord
	synced   map[string]time.Time
}

func newFakeMirror(orders ...models.OrderRecord) *fakeMirror {
	return &fakeMirror{
		orders:   orders,
		upserted: make(map[string][]models.RemoteLineRecord),
		synced:   make(map[string]time.Time),
	}
}

func (f *fakeMirror) TransmittedOrders(ctx context.Context) ([]models.OrderRecord, error) {
	return f.orders, nil
}

func (f *fakeMirror) UpsertRemoteLines(ctx context.Context, externalOrderID string, lines []models.RemoteLineRecord) error {
	f.upserted[externalOrderID] = lines
	return nil
}

func (f *fakeMirror) MarkSynced(ctx context.Context, orderID string, at time.Time) error {
	f.synced[orderID] = at
	return nil
}

func order(id, number, external string, syncedAt *time.Time) models.OrderRecord {
	return models.OrderRecord{ID: id, Number: number, ExternalOrderID: external, SyncedAt: syncedAt}
}

func TestSyncOrder(t *testing.T) {
	fetcher := &fakeFetcher{lines: map[string][]models.RemoteLineRecord{
		"ext-1": {{PurchaseOrderLineID: "l1", LineDescription: "steel beam"}},
	}}
	mirror := newFakeMirror()
	s := New(nil, fetcher, mirror, nil)

	o := order("o1", "PO-1001", "ext-1", nil)
	if err := s.SyncOrder(context.Background(), &o); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(mirror.upserted["ext-1"]) != 1 {
		t.Error("Expected fetched lines mirrored")
	}
	if _, ok := mirror.synced["o1"]; !ok {
		t.Error("Expected sync timestamp recorded")
	}
}

func TestSyncOrderRequiresExternalID(t *testing.T) {
	s := New(nil, &fakeFetcher{}, newFakeMirror(), nil)

	o := order("o1", "PO-1001", "", nil)
	if err := s.SyncOrder(context.Background(), &o); err == nil {
		t.Fatal("Expected precondition error")
	}
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		lines:  map[string][]models.RemoteLineRecord{"ext-1": {}, "ext-3": {}},
		errors: map[string]error{"ext-2": fmt.Errorf("upstream down")},
	}
	mirror := newFakeMirror(
		order("o1", "PO-1", "ext-1", nil),
		order("o2", "PO-2", "ext-2", nil),
		order("o3", "PO-3", "ext-3", nil),
	)
	s := New(nil, fetcher, mirror, nil)

	result, err := s.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Synced != 2 || result.Failed != 1 {
		t.Errorf("Expected 2 synced and 1 failed, got %d/%d", result.Synced, result.Failed)
	}
	if _, ok := mirror.synced["o3"]; !ok {
		t.Error("Expected orders after a failure to still sync")
	}
}

func TestSyncAllStopsOnCancel(t *testing.T) {
	mirror := newFakeMirror(order("o1", "PO-1", "ext-1", nil))
	s := New(nil, &fakeFetcher{}, mirror, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SyncAll(ctx); err == nil {
		t.Fatal("Expected cancelled context to abort the run")
	}
}

func TestStateOf(t *testing.T) {
	s := New(nil, &fakeFetcher{}, newFakeMirror(), nil)
	now := time.Now()
	s.now = func() time.Time { return now }

	fresh := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)

	tests := []struct {
		syncedAt *time.Time
		expected SyncState
	}{
		{nil, SyncStateMissing},
		{&fresh, SyncStateCached},
		{&old, SyncStateStale},
	}

	for _, tt := range tests {
		o := order("o1", "PO-1", "ext-1", tt.syncedAt)
		if got := s.StateOf(&o); got != tt.expected {
			t.Errorf("StateOf(syncedAt=%v) = %s, expected %s", tt.syncedAt, got, tt.expected)
		}
	}
}

func TestStatus(t *testing.T) {
	now := time.Now()
	fresh := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)

	mirror := newFakeMirror(
		order("o1", "PO-1", "ext-1", &fresh),
		order("o2", "PO-2", "ext-2", &old),
		order("o3", "PO-3", "ext-3", nil),
	)
	s := New(nil, &fakeFetcher{}, mirror, nil)
	s.now = func() time.Time { return now }

	report, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if report.Cached != 1 || report.Stale != 1 || report.Missing != 1 || report.Total != 3 {
		t.Errorf("Unexpected report: %+v", report)
	}
}
