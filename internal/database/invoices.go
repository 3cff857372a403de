package database

import (
	"context"
	"fmt"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

const invoiceColumns = `i.id, i.number, i.date, i.due_date, i.customer_id, cu.first_name || ' ' || cu.last_name,
	COALESCE(i.contract_id, 0), i.description, i.total_amount, i.status, i.created_at, i.updated_at`

const invoiceFrom = ` FROM invoices i JOIN customers cu ON cu.id = i.customer_id`

func scanInvoice(row pgx.Row) (inv models.Invoice, err error) {
	err = row.Scan(&inv.ID, &inv.Number, &inv.Date, &inv.DueDate, &inv.CustomerID, &inv.CustomerName,
		&inv.ContractID, &inv.Description, &inv.TotalAmount, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

// ListInvoices returns the invoice headers matching f, latest first.
func (db *Manager) ListInvoices(ctx context.Context, f models.InvoiceFilter) ([]models.Invoice, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+`
		WHERE ($1 = '' OR i.status = $1)
		  AND ($2 = 0 OR i.customer_id = $2)
		  AND ($3 = 0 OR i.contract_id = $3)
		  AND ($4 = '' OR i.number ILIKE $5 OR cu.first_name || ' ' || cu.last_name ILIKE $5)
		ORDER BY i.date DESC, i.id DESC`,
		string(f.Status), f.CustomerID, f.ContractID, f.Search, likePattern(f.Search))
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanInvoice)
}

// GetInvoice returns an invoice with its items and payments.
func (db *Manager) GetInvoice(ctx context.Context, id int64) (models.Invoice, error) {
	inv, err := scanInvoice(db.dbpool.QueryRow(ctx, `SELECT `+invoiceColumns+invoiceFrom+` WHERE i.id = $1`, id))
	if err != nil {
		return models.Invoice{}, translate(err)
	}

	if inv.Items, err = db.listInvoiceItems(ctx, db.dbpool, id); err != nil {
		return models.Invoice{}, err
	}
	if inv.Payments, err = db.ListInvoicePayments(ctx, id); err != nil {
		return models.Invoice{}, err
	}
	return inv, nil
}

// CreateInvoice inserts an invoice and its items. When items are given, the total is their sum.
func (db *Manager) CreateInvoice(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	if len(inv.Items) > 0 {
		inv.TotalAmount = inv.ComputeTotal()
	}

	var id int64
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO invoices
			(number, date, due_date, customer_id, contract_id, description, total_amount, status)
			VALUES ($1, $2, $3, $4, NULLIF($5, 0), $6, $7, $8) RETURNING id`,
			inv.Number, inv.Date, inv.DueDate, inv.CustomerID, inv.ContractID, inv.Description, inv.TotalAmount,
			string(inv.Status)).Scan(&id)
		if err != nil {
			return err
		}
		for _, it := range inv.Items {
			if _, err := tx.Exec(ctx, `INSERT INTO invoice_items (invoice_id, concept, quantity, price_unit)
				VALUES ($1, $2, $3, $4)`, id, it.Concept, it.Quantity, it.PriceUnit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Invoice{}, err
	}
	return db.GetInvoice(ctx, id)
}

// UpdateInvoice replaces the header fields of an invoice. The status is left untouched, and so is
// the total of an invoice with items, which always follows them.
func (db *Manager) UpdateInvoice(ctx context.Context, inv models.Invoice) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE invoices SET
		number = $2, date = $3, due_date = $4, customer_id = $5, contract_id = NULLIF($6, 0), description = $7,
		total_amount = CASE WHEN EXISTS (SELECT 1 FROM invoice_items WHERE invoice_id = $1)
			THEN total_amount ELSE $8 END,
		updated_at = NOW() WHERE id = $1`,
		inv.ID, inv.Number, inv.Date, inv.DueDate, inv.CustomerID, inv.ContractID, inv.Description, inv.TotalAmount))
}

// DeleteInvoice removes an invoice with its items and payments.
func (db *Manager) DeleteInvoice(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id))
}

// SetInvoiceStatus updates the status of an invoice.
func (db *Manager) SetInvoiceStatus(ctx context.Context, id int64, status models.InvoiceStatus) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status)))
}

// SetInvoiceNumber sets the number of an invoice.
func (db *Manager) SetInvoiceNumber(ctx context.Context, id int64, number string) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE invoices SET number = $2, updated_at = NOW() WHERE id = $1`,
		id, number))
}

// InvoicesWithoutNumber returns the invoices still missing a number, oldest first.
func (db *Manager) InvoicesWithoutNumber(ctx context.Context) ([]models.Invoice, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+`
		WHERE i.number = '' ORDER BY i.date, i.id`)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanInvoice)
}

// MaxInvoiceSequence returns the highest sequence of the INV-<year>-<seq> numbers of a year, or 0.
func (db *Manager) MaxInvoiceSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := db.dbpool.QueryRow(ctx, `SELECT COALESCE(MAX(split_part(number, '-', 3)::int), 0) FROM invoices
		WHERE number ~ $1`, fmt.Sprintf(`^INV-%04d-[0-9]+$`, year)).Scan(&seq)
	return seq, translate(err)
}

// LastContractInvoiceDate returns the date of the latest non cancelled invoice of a contract,
// or an unset date when there is none.
func (db *Manager) LastContractInvoiceDate(ctx context.Context, contractID int64) (models.Date, error) {
	var d models.Date
	err := db.dbpool.QueryRow(ctx, `SELECT MAX(date) FROM invoices
		WHERE contract_id = $1 AND status <> 'cancelled'`, contractID).Scan(&d)
	return d, translate(err)
}

// ListOpenContractInvoices returns the validated or sent invoices of a contract due in [from, to],
// with the agent of the contract and the amount already paid.
func (db *Manager) ListOpenContractInvoices(ctx context.Context, from, to models.Date) ([]models.AgentInvoice, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+invoiceColumns+`, c.agent_id,
		COALESCE((SELECT SUM(ip.amount) FROM invoice_payments ip WHERE ip.invoice_id = i.id), 0)::bigint
		`+invoiceFrom+` JOIN contracts c ON c.id = i.contract_id
		WHERE i.status IN ('validated', 'sent') AND i.due_date BETWEEN $1 AND $2
		ORDER BY i.due_date, i.id`, from, to)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (a models.AgentInvoice, err error) {
		err = row.Scan(&a.ID, &a.Number, &a.Date, &a.DueDate, &a.CustomerID, &a.CustomerName,
			&a.ContractID, &a.Description, &a.TotalAmount, &a.Status, &a.CreatedAt, &a.UpdatedAt,
			&a.AgentID, &a.PaidAmount)
		return a, err
	})
}

// ContractAgent returns the agent in charge of the contract of an invoice, or 0 when the invoice has no contract.
func (db *Manager) ContractAgent(ctx context.Context, invoiceID int64) (int64, error) {
	var agentID int64
	err := db.dbpool.QueryRow(ctx, `SELECT COALESCE(c.agent_id, 0) FROM invoices i
		LEFT JOIN contracts c ON c.id = i.contract_id WHERE i.id = $1`, invoiceID).Scan(&agentID)
	return agentID, translate(err)
}

const itemColumns = `id, invoice_id, concept, quantity, price_unit`

func scanItem(row pgx.Row) (it models.InvoiceItem, err error) {
	err = row.Scan(&it.ID, &it.InvoiceID, &it.Concept, &it.Quantity, &it.PriceUnit)
	return it, err
}

func (db *Manager) listInvoiceItems(ctx context.Context, q querier, invoiceID int64) ([]models.InvoiceItem, error) {
	rows, err := q.Query(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanItem)
}

// GetInvoiceItem returns the item with the given id.
func (db *Manager) GetInvoiceItem(ctx context.Context, id int64) (models.InvoiceItem, error) {
	it, err := scanItem(db.dbpool.QueryRow(ctx, `SELECT `+itemColumns+` FROM invoice_items WHERE id = $1`, id))
	return it, translate(err)
}

// AddInvoiceItem inserts an item and recomputes the invoice total.
func (db *Manager) AddInvoiceItem(ctx context.Context, it models.InvoiceItem) (models.InvoiceItem, error) {
	var created models.InvoiceItem
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = scanItem(tx.QueryRow(ctx, `INSERT INTO invoice_items (invoice_id, concept, quantity, price_unit)
			VALUES ($1, $2, $3, $4) RETURNING `+itemColumns, it.InvoiceID, it.Concept, it.Quantity, it.PriceUnit))
		if err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, it.InvoiceID)
	})
	return created, err
}

// UpdateInvoiceItem replaces an item and recomputes the invoice total.
func (db *Manager) UpdateInvoiceItem(ctx context.Context, it models.InvoiceItem) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		var invoiceID int64
		err := tx.QueryRow(ctx, `UPDATE invoice_items SET concept = $2, quantity = $3, price_unit = $4
			WHERE id = $1 RETURNING invoice_id`, it.ID, it.Concept, it.Quantity, it.PriceUnit).Scan(&invoiceID)
		if err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, invoiceID)
	})
}

// DeleteInvoiceItem removes an item and recomputes the invoice total.
func (db *Manager) DeleteInvoiceItem(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		var invoiceID int64
		if err := tx.QueryRow(ctx, `DELETE FROM invoice_items WHERE id = $1 RETURNING invoice_id`, id).Scan(&invoiceID); err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, invoiceID)
	})
}

func recomputeTotal(ctx context.Context, q querier, invoiceID int64) error {
	_, err := q.Exec(ctx, `UPDATE invoices SET updated_at = NOW(), total_amount =
		(SELECT COALESCE(SUM(quantity * price_unit), 0) FROM invoice_items WHERE invoice_id = $1)
		WHERE id = $1`, invoiceID)
	return err
}

const invoicePaymentColumns = `ip.id, ip.invoice_id, i.number, ip.payment_date, ip.amount, ip.method, ip.notes, ip.created_at`

const invoicePaymentFrom = ` FROM invoice_payments ip JOIN invoices i ON i.id = ip.invoice_id`

func scanInvoicePayment(row pgx.Row) (p models.Payment, err error) {
	err = row.Scan(&p.ID, &p.InvoiceID, &p.InvoiceNumber, &p.Date, &p.Amount, &p.Method, &p.Notes, &p.CreatedAt)
	return p, err
}

// ListInvoicePayments returns the payments of an invoice, or of every invoice when invoiceID is 0.
func (db *Manager) ListInvoicePayments(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+invoicePaymentColumns+invoicePaymentFrom+`
		WHERE $1 = 0 OR ip.invoice_id = $1 ORDER BY ip.payment_date DESC, ip.id DESC`, invoiceID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanInvoicePayment)
}

// GetInvoicePayment returns the invoice payment with the given id.
func (db *Manager) GetInvoicePayment(ctx context.Context, id int64) (models.Payment, error) {
	p, err := scanInvoicePayment(db.dbpool.QueryRow(ctx, `SELECT `+invoicePaymentColumns+invoicePaymentFrom+`
		WHERE ip.id = $1`, id))
	return p, translate(err)
}

// AddInvoicePayment inserts a payment against an open invoice.
// The invoice row stays locked until the insert commits, so concurrent payments cannot exceed the balance.
func (db *Manager) AddInvoicePayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	var id int64
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var total, paid models.Money
		var status models.InvoiceStatus
		if err := tx.QueryRow(ctx, `SELECT total_amount, status FROM invoices WHERE id = $1 FOR UPDATE`, p.InvoiceID).Scan(&total, &status); err != nil {
			return err
		}
		if !status.Open() {
			return fmt.Errorf("%w: invoice %d is %s", ErrInvalid, p.InvoiceID, status)
		}
		if err := tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::bigint FROM invoice_payments WHERE invoice_id = $1`, p.InvoiceID).Scan(&paid); err != nil {
			return err
		}
		if balance := total - paid; p.Amount > balance {
			return fmt.Errorf("%w: payment of %s exceeds the balance of %s", ErrInvalid, p.Amount.Format(), balance.Format())
		}
		return tx.QueryRow(ctx, `INSERT INTO invoice_payments (invoice_id, payment_date, amount, method, notes)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`, p.InvoiceID, p.Date, p.Amount, p.Method, p.Notes).Scan(&id)
	})
	if err != nil {
		return models.Payment{}, err
	}
	return db.GetInvoicePayment(ctx, id)
}

// DeleteInvoicePayment removes an invoice payment.
func (db *Manager) DeleteInvoicePayment(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM invoice_payments WHERE id = $1`, id))
}
