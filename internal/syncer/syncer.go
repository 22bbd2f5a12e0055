// Package syncer keeps the local mirror of remote order lines current. It
// fetches lines for transmitted orders through the procurement client and
// writes them through the store, one order at a time, so that report runs can
// work entirely from local data.
package syncer

import (
	"context"
	"time"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// LineFetcher supplies remote order lines, normally the procurement client
type LineFetcher interface {
	OrderLines(ctx context.Context, externalOrderID string, opts models.FetchOptions) ([]models.RemoteLineRecord, error)
}

// LineMirror persists fetched lines and sync bookkeeping, normally the store
type LineMirror interface {
	TransmittedOrders(ctx context.Context) ([]models.OrderRecord, error)
	UpsertRemoteLines(ctx context.Context, externalOrderID string, lines []models.RemoteLineRecord) error
	MarkSynced(ctx context.Context, orderID string, at time.Time) error
}

// SyncState classifies how current an order's mirrored lines are
type SyncState string

const (
	SyncStateCached  SyncState = "cached"
	SyncStateStale   SyncState = "stale"
	SyncStateMissing SyncState = "missing"
)

// Config holds syncer settings. StaleAfter is how old a mirror may get before
// report output should warn about it.
type Config struct {
	StaleAfter time.Duration `json:"stale_after"`
}

// DefaultConfig returns the production defaults
func DefaultConfig() *Config {
	return &Config{StaleAfter: 24 * time.Hour}
}

// Syncer drives mirror updates
type Syncer struct {
	config  *Config
	fetcher LineFetcher
	mirror  LineMirror
	logger  logger.Logger
	now     func() time.Time
}

// New creates a syncer. A nil config gets the defaults.
func New(config *Config, fetcher LineFetcher, mirror LineMirror, log logger.Logger) *Syncer {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Syncer{
		config:  config,
		fetcher: fetcher,
		mirror:  mirror,
		logger:  log.WithComponent("syncer"),
		now:     time.Now,
	}
}

// SyncOrder refreshes the mirror for a single order. The order must carry an
// external identifier.
func (s *Syncer) SyncOrder(ctx context.Context, order *models.OrderRecord) error {
	if !order.HasExternalOrder() {
		return errors.PreconditionError(errors.CodeMissingOrderID, order.Number)
	}

	lines, err := s.fetcher.OrderLines(ctx, order.ExternalOrderID, models.FetchOptions{ForceRefresh: true})
	if err != nil {
		return err
	}
	if err := s.mirror.UpsertRemoteLines(ctx, order.ExternalOrderID, lines); err != nil {
		return err
	}
	if err := s.mirror.MarkSynced(ctx, order.ID, s.now().UTC()); err != nil {
		return err
	}

	s.logger.WithFields(logger.Fields{
		"order":             order.Number,
		"external_order_id": order.ExternalOrderID,
		"lines":             len(lines),
	}).Debug("Synced order lines")
	return nil
}

// SyncResult summarizes one bulk run
type SyncResult struct {
	Total    int           `json:"total"`
	Synced   int           `json:"synced"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// SyncAll refreshes every transmitted order. Individual order failures are
// logged and counted, not fatal; the run keeps going so one bad order cannot
// starve the rest of the report data. Stops early only when the context is
// cancelled.
func (s *Syncer) SyncAll(ctx context.Context) (*SyncResult, error) {
	orders, err := s.mirror.TransmittedOrders(ctx)
	if err != nil {
		return nil, err
	}

	start := s.now()
	progress := logger.NewProgressTracker(s.logger, "order line sync", len(orders))

	for i := range orders {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.CategoryFetch, errors.CodeRequestFailed,
				"sync cancelled")
		}

		if err := s.SyncOrder(ctx, &orders[i]); err != nil {
			s.logger.WithError(err).WithField("order", orders[i].Number).Warn("Order sync failed")
			progress.Fail()
			continue
		}
		progress.Increment()
	}

	synced, failed := progress.Summary()
	result := &SyncResult{
		Total:    len(orders),
		Synced:   synced,
		Failed:   failed,
		Duration: s.now().Sub(start),
	}

	s.logger.WithFields(logger.Fields{
		"total":  result.Total,
		"synced": result.Synced,
		"failed": result.Failed,
	}).Info("Bulk sync complete")
	return result, nil
}

// StateOf classifies one order's mirror freshness
func (s *Syncer) StateOf(order *models.OrderRecord) SyncState {
	if order.SyncedAt == nil {
		return SyncStateMissing
	}
	if s.now().Sub(*order.SyncedAt) > s.config.StaleAfter {
		return SyncStateStale
	}
	return SyncStateCached
}

// StatusReport counts mirror freshness across all transmitted orders
type StatusReport struct {
	Cached  int `json:"cached"`
	Stale   int `json:"stale"`
	Missing int `json:"missing"`
	Total   int `json:"total"`
}

// Status reports how current the mirror is overall
func (s *Syncer) Status(ctx context.Context) (*StatusReport, error) {
	orders, err := s.mirror.TransmittedOrders(ctx)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{Total: len(orders)}
	for i := range orders {
		switch s.StateOf(&orders[i]) {
		case SyncStateCached:
			report.Cached++
		case SyncStateStale:
			report.Stale++
		case SyncStateMissing:
			report.Missing++
		}
	}
	return report, nil
}
