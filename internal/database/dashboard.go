package database

import (
	"context"

	"github.com/inmobiliaria/backoffice/internal/models"
)

// Dashboard returns the counters of the back office home for the given day.
func (db *Manager) Dashboard(ctx context.Context, today models.Date) (models.Dashboard, error) {
	var d models.Dashboard
	err := db.dbpool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM agents WHERE is_active),
		(SELECT COUNT(*) FROM customers),
		(SELECT COUNT(*) FROM properties),
		(SELECT COUNT(*) FROM properties p JOIN property_statuses s ON s.id = p.property_status_id
			WHERE s.name = 'Disponible'),
		(SELECT COUNT(*) FROM contracts WHERE is_active AND status IN ('active', 'expiring_soon')),
		(SELECT COUNT(*) FROM contracts WHERE status = 'expiring_soon'),
		(SELECT COUNT(*) FROM contract_payments WHERE status = 'pending' AND due_date < $1),
		(SELECT COUNT(*) FROM invoices WHERE status IN ('validated', 'sent'))`, today).Scan(
		&d.Agents, &d.Customers, &d.Properties, &d.AvailableProperties,
		&d.ActiveContracts, &d.ExpiringContracts, &d.OverduePayments, &d.OpenInvoices)
	return d, translate(err)
}

// AccountingSummary returns the overview of the accounting dashboard for the given day.
func (db *Manager) AccountingSummary(ctx context.Context, today models.Date) (models.AccountingSummary, error) {
	s := models.AccountingSummary{CountByStatus: make(map[models.InvoiceStatus]int)}

	rows, err := db.dbpool.Query(ctx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
	if err != nil {
		return s, translate(err)
	}
	for rows.Next() {
		var status models.InvoiceStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return s, translate(err)
		}
		s.CountByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, translate(err)
	}

	err = db.dbpool.QueryRow(ctx, `SELECT
		COALESCE((SELECT SUM(total_amount) FROM invoices WHERE status <> 'cancelled' AND status <> 'draft'), 0)::bigint,
		COALESCE((SELECT SUM(ip.amount) FROM invoice_payments ip JOIN invoices i ON i.id = ip.invoice_id
			WHERE i.status <> 'cancelled'), 0)::bigint,
		(SELECT COUNT(*) FROM invoices WHERE status IN ('validated', 'sent') AND due_date < $1),
		(SELECT COUNT(*) FROM invoices WHERE number = '')`, today).Scan(
		&s.TotalInvoiced, &s.TotalCollected, &s.OverdueCount, &s.UnnumberedCount)
	if err != nil {
		return s, translate(err)
	}
	s.Outstanding = s.TotalInvoiced - s.TotalCollected

	invRows, err := db.dbpool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+` ORDER BY i.created_at DESC, i.id DESC LIMIT 10`)
	if err != nil {
		return s, translate(err)
	}
	s.RecentInvoices, err = collect(invRows, scanInvoice)
	return s, err
}
