package report

import (
	"context"

	"po-reconciliation-service/internal/comparer"
	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/internal/syncer"
	"po-reconciliation-service/pkg/logger"
)

// OrderComparer runs one reconciliation, normally the comparer service
type OrderComparer interface {
	CompareOrder(ctx context.Context, order *models.OrderRecord, opts models.FetchOptions) (*comparer.ComparisonResult, error)
}

// OrderSource lists the orders eligible for reporting, normally the store
type OrderSource interface {
	TransmittedOrders(ctx context.Context) ([]models.OrderRecord, error)
}

// SyncStateClassifier reports mirror freshness, normally the syncer
type SyncStateClassifier interface {
	StateOf(order *models.OrderRecord) syncer.SyncState
	Status(ctx context.Context) (*syncer.StatusReport, error)
}

// Generator reconciles every transmitted order from locally mirrored data and
// folds the outcomes into a Report. Report runs never hit the external API;
// orders whose mirror is missing are skipped and counted.
type Generator struct {
	config   *Config
	comparer OrderComparer
	orders   OrderSource
	sync     SyncStateClassifier
	logger   logger.Logger
}

// NewGenerator creates a report generator
func NewGenerator(config *Config, oc OrderComparer, orders OrderSource, sync SyncStateClassifier, log logger.Logger) *Generator {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Generator{
		config:   config,
		comparer: oc,
		orders:   orders,
		sync:     sync,
		logger:   log.WithComponent("report"),
	}
}

// Generate builds the portfolio report. Per-order failures are logged and
// counted as skips; only listing the orders themselves is fatal.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	orders, err := g.orders.TransmittedOrders(ctx)
	if err != nil {
		return nil, err
	}

	progress := logger.NewProgressTracker(g.logger, "report comparisons", len(orders))
	items := make([]OrderComparison, 0, len(orders))
	skipped := 0

	for i := range orders {
		order := &orders[i]
		state := g.sync.StateOf(order)
		if state == syncer.SyncStateMissing {
			skipped++
			progress.Fail()
			continue
		}

		result, err := g.comparer.CompareOrder(ctx, order, models.FetchOptions{CacheOnly: true})
		if err != nil {
			g.logger.WithError(err).WithField("order", order.Number).Warn("Skipping order in report")
			skipped++
			progress.Fail()
			continue
		}

		items = append(items, OrderComparison{Order: *order, Result: result, SyncState: state})
		progress.Increment()
	}

	report := Build(items, g.config)
	report.OrdersSkipped = skipped

	if status, err := g.sync.Status(ctx); err == nil {
		report.SyncStatus = status
	} else {
		g.logger.WithError(err).Warn("Could not attach sync status to report")
	}

	return report, nil
}
