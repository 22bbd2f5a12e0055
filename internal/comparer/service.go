package comparer

import (
	"context"
	"time"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// LocalLineSource supplies requisition lines from the local database
type LocalLineSource interface {
	OrderLines(ctx context.Context, orderID string) ([]models.LocalLineRecord, error)
}

// RemoteLineSource supplies purchase-order lines from the external
// procurement system, typically through a short-lived cache.
type RemoteLineSource interface {
	OrderLines(ctx context.Context, externalOrderID string, opts models.FetchOptions) ([]models.RemoteLineRecord, error)
}

// InvoiceSource supplies posted invoices and their lines for an external
// order identifier.
type InvoiceSource interface {
	Invoices(ctx context.Context, externalOrderID string) ([]models.InvoiceRecord, error)
	InvoiceLines(ctx context.Context, externalOrderID string) ([]models.InvoiceLineRecord, error)
}

// Service runs complete reconciliations: it gates on the precondition,
// gathers the three line collections from its collaborators, normalizes them,
// and hands them to the engine. Collaborator failures are wrapped and
// returned; there is no partial result.
type Service struct {
	engine   *Engine
	local    LocalLineSource
	remote   RemoteLineSource
	invoices InvoiceSource
	logger   logger.Logger
}

// NewService creates a reconciliation service around the given collaborators
func NewService(engine *Engine, local LocalLineSource, remote RemoteLineSource, invoices InvoiceSource, log logger.Logger) *Service {
	if engine == nil {
		engine = NewEngine(nil, log)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Service{
		engine:   engine,
		local:    local,
		remote:   remote,
		invoices: invoices,
		logger:   log.WithComponent("comparer.service"),
	}
}

// CompareOrder reconciles one purchase order. The order must carry an
// external identifier; without one there is nothing to reconcile against and
// the call fails fast.
func (s *Service) CompareOrder(ctx context.Context, order *models.OrderRecord, opts models.FetchOptions) (*ComparisonResult, error) {
	if !order.HasExternalOrder() {
		return nil, errors.PreconditionError(errors.CodeMissingOrderID, order.Number)
	}

	log := s.logger.WithFields(logger.Fields{
		"order_id":          order.ID,
		"external_order_id": order.ExternalOrderID,
	})
	log.Debug("Starting reconciliation")

	localRecords, err := s.local.OrderLines(ctx, order.ID)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeQueryFailed,
			"loading local order lines")
	}

	remoteRecords, err := s.remote.OrderLines(ctx, order.ExternalOrderID, opts)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryFetch, errors.CodeRequestFailed,
			"fetching external order lines")
	}

	invoiceRecords, err := s.invoices.Invoices(ctx, order.ExternalOrderID)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeQueryFailed,
			"loading invoices")
	}

	invoiceLineRecords, err := s.invoices.InvoiceLines(ctx, order.ExternalOrderID)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryStore, errors.CodeQueryFailed,
			"loading invoice lines")
	}

	normalizer := models.NewNormalizer()
	local := normalizer.LocalLines(localRecords)
	remote := normalizer.RemoteLines(remoteRecords)
	invoiceLines := normalizer.InvoiceLines(invoiceLineRecords)

	result := s.engine.Compare(local, remote, invoiceLines)
	result.OrderID = order.ID
	result.OrderNumber = order.Number
	result.Invoices = invoiceRecords
	result.Anomalies = normalizer.Stats()
	result.FetchedAt = time.Now().UTC()

	if result.Anomalies.HasAnomalies() {
		log.WithFields(logger.Fields{
			"bad_amounts":        result.Anomalies.BadAmounts,
			"empty_descriptions": result.Anomalies.EmptyDescriptions,
		}).Warn("Absorbed malformed line data during normalization")
	}

	log.WithFields(logger.Fields{
		"rows":              len(result.Comparison),
		"has_discrepancies": result.Summary.HasDiscrepancies,
	}).Info("Reconciliation complete")

	return result, nil
}
