package store

import (
	"context"

	"po-reconciliation-service/internal/models"
	"po-reconciliation-service/pkg/errors"
	"po-reconciliation-service/pkg/logger"
)

// UpsertRemoteLines mirrors one order's remote lines into the local database,
// replacing prior values and deleting lines the external system no longer
// returns. Runs in a single transaction so report readers never see a
// half-synced order.
func (s *Store) UpsertRemoteLines(ctx context.Context, externalOrderID string, lines []models.RemoteLineRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.StoreError(errors.CodeUpsertFailed, "begin remote line sync", err)
	}
	defer tx.Rollback(ctx)

	keep := make([]string, 0, len(lines))
	for _, line := range lines {
		keep = append(keep, line.PurchaseOrderLineID)
		_, err := tx.Exec(ctx, `
			INSERT INTO remote_order_lines
				(external_line_id, external_order_id, line_number, description,
				 qty, unit_cost, amount, invoice_balance, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
			ON CONFLICT (external_line_id) DO UPDATE SET
				line_number = EXCLUDED.line_number,
				description = EXCLUDED.description,
				qty = EXCLUDED.qty,
				unit_cost = EXCLUDED.unit_cost,
				amount = EXCLUDED.amount,
				invoice_balance = EXCLUDED.invoice_balance,
				synced_at = now()`,
			line.PurchaseOrderLineID, externalOrderID, line.Line, line.LineDescription,
			line.Quantity, line.UnitCost, line.Amount, line.InvoiceBalance)
		if err != nil {
			return errors.StoreError(errors.CodeUpsertFailed, "upsert remote line", err)
		}
	}

	// Lines dropped upstream must not linger in the mirror
	_, err = tx.Exec(ctx, `
		DELETE FROM remote_order_lines
		WHERE external_order_id = $1 AND NOT (external_line_id = ANY($2))`,
		externalOrderID, keep)
	if err != nil {
		return errors.StoreError(errors.CodeUpsertFailed, "prune removed remote lines", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.StoreError(errors.CodeUpsertFailed, "commit remote line sync", err)
	}

	s.logger.WithFields(logger.Fields{
		"external_order_id": externalOrderID,
		"lines":             len(lines),
	}).Debug("Mirrored remote order lines")
	return nil
}

// MirroredRemoteLines reads the locally mirrored remote lines of an order,
// for report runs that must not touch the external API.
func (s *Store) MirroredRemoteLines(ctx context.Context, externalOrderID string) ([]models.RemoteLineRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT external_line_id, external_order_id, COALESCE(line_number, 0),
		       COALESCE(description, ''), qty, unit_cost, amount, invoice_balance
		FROM remote_order_lines
		WHERE external_order_id = $1
		ORDER BY line_number NULLS LAST, external_line_id`, externalOrderID)
	if err != nil {
		return nil, errors.StoreError(errors.CodeQueryFailed, "load mirrored remote lines", err)
	}
	defer rows.Close()

	var lines []models.RemoteLineRecord
	for rows.Next() {
		var l models.RemoteLineRecord
		if err := rows.Scan(&l.PurchaseOrderLineID, &l.PurchaseOrderID, &l.Line,
			&l.LineDescription, &l.Quantity, &l.UnitCost, &l.Amount, &l.InvoiceBalance); err != nil {
			return nil, errors.StoreError(errors.CodeQueryFailed, "scan mirrored remote line", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
