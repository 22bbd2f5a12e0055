// Package store is the persistence layer: local requisition orders and
// lines, the invoice ledger, and the mirror of remote order lines kept for
// offline report runs. All access goes through a pgx connection pool.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// Store wraps a pgx pool with the queries reconciliation needs. Safe for
// concurrent use.
type Store struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// New connects a store to the given database URL
func New(ctx context.Context, databaseURL string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "database_url", "unparseable", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, errors.StoreError(errors.CodeConnectFailed, "connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.StoreError(errors.CodeConnectFailed, "ping", err)
	}

	return &Store{pool: pool, logger: log.WithComponent("store")}, nil
}

// Close releases the connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Order loads one purchase-order header by internal id
func (s *Store) Order(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, number, COALESCE(external_order_id, ''), COALESCE(supplier, ''),
		       COALESCE(location, ''), COALESCE(status, ''), ordered_at, synced_at
		FROM purchase_orders
		WHERE id = $1`, orderID)
	return scanOrder(row)
}

// OrderByNumber loads one purchase-order header by its human-facing number
func (s *Store) OrderByNumber(ctx context.Context, number string) (*models.OrderRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, number, COALESCE(external_order_id, ''), COALESCE(supplier, ''),
		       COALESCE(location, ''), COALESCE(status, ''), ordered_at, synced_at
		FROM purchase_orders
		WHERE number = $1`, number)
	return scanOrder(row)
}

func scanOrder(row pgx.Row) (*models.OrderRecord, error) {
	var o models.OrderRecord
	err := row.Scan(&o.ID, &o.Number, &o.ExternalOrderID, &o.Supplier,
		&o.Location, &o.Status, &o.OrderedAt, &o.SyncedAt)
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "load order", err)
	}
	return &o, nil
}

// TransmittedOrders returns the headers of all orders that carry an external
// identifier, for bulk sync and report runs.
func (s *Store) TransmittedOrders(ctx context.Context) ([]models.OrderRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, number, external_order_id, COALESCE(supplier, ''),
		       COALESCE(location, ''), COALESCE(status, ''), ordered_at, synced_at
		FROM purchase_orders
		WHERE external_order_id IS NOT NULL AND external_order_id <> ''
		ORDER BY ordered_at NULLS LAST, number`)
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "list transmitted orders", err)
	}
	defer rows.Close()

	var orders []models.OrderRecord
	for rows.Next() {
		var o models.OrderRecord
		if err := rows.Scan(&o.ID, &o.Number, &o.ExternalOrderID, &o.Supplier,
			&o.Location, &o.Status, &o.OrderedAt, &o.SyncedAt); err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "scan order", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// OrderLines loads the local requisition lines of an order in line order.
// Monetary columns are read as text so malformed values reach the normalizer
// instead of failing the scan.
func (s *Store) OrderLines(ctx context.Context, orderID string) ([]models.LocalLineRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(line_number, 0), COALESCE(code, ''), COALESCE(description, ''),
		       COALESCE(qty::text, ''), COALESCE(unit_cost::text, ''), COALESCE(total_cost::text, ''),
		       COALESCE(cost_code, ''), COALESCE(price_list_id, '')
		FROM purchase_order_lines
		WHERE purchase_order_id = $1
		ORDER BY line_number NULLS LAST, id`, orderID)
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "load order lines", err)
	}
	defer rows.Close()

	var lines []models.LocalLineRecord
	for rows.Next() {
		var l models.LocalLineRecord
		if err := rows.Scan(&l.ID, &l.LineNumber, &l.Code, &l.Description,
			&l.Qty, &l.UnitCost, &l.TotalCost, &l.CostCode, &l.PriceList); err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "scan order line", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// Invoices loads the posted invoices referencing an external order id
func (s *Store) Invoices(ctx context.Context, externalOrderID string) ([]models.InvoiceRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, number, COALESCE(invoice_date::text, ''), COALESCE(total::text, '0'),
		       COALESCE(status, ''), COALESCE(approval_status, ''), COALESCE(vendor_name, '')
		FROM invoices
		WHERE external_order_id = $1
		ORDER BY invoice_date NULLS LAST, number`, externalOrderID)
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "load invoices", err)
	}
	defer rows.Close()

	var invoices []models.InvoiceRecord
	for rows.Next() {
		var inv models.InvoiceRecord
		var total string
		if err := rows.Scan(&inv.InvoiceID, &inv.InvoiceNumber, &inv.InvoiceDate,
			&total, &inv.Status, &inv.ApprovalStatus, &inv.VendorName); err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "scan invoice", err)
		}
		amount, err := models.ParseAmount(total)
		if err == nil {
			inv.Total = amount
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// InvoiceLines loads all invoice lines whose parent invoice references the
// external order id.
func (s *Store) InvoiceLines(ctx context.Context, externalOrderID string) ([]models.InvoiceLineRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT COALESCE(il.description, ''), COALESCE(il.qty::text, ''),
		       COALESCE(il.unit_cost::text, ''), COALESCE(il.total_cost::text, ''),
		       i.number, il.invoice_id
		FROM invoice_lines il
		JOIN invoices i ON i.id = il.invoice_id
		WHERE i.external_order_id = $1
		ORDER BY i.number, il.id`, externalOrderID)
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "load invoice lines", err)
	}
	defer rows.Close()

	var lines []models.InvoiceLineRecord
	for rows.Next() {
		var l models.InvoiceLineRecord
		if err := rows.Scan(&l.Description, &l.Qty, &l.UnitCost, &l.TotalCost,
			&l.InvoiceNumber, &l.InvoiceID); err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "scan invoice line", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// MarkSynced records when an order's remote lines were last mirrored
func (s *Store) MarkSynced(ctx context.Context, orderID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE purchase_orders SET synced_at = $2 WHERE id = $1`, orderID, at)
	if err != nil {
		return errors.StoreError(errors.CodeUpsertFailed, "mark synced", err)
	}
	return nil
}
