package database

import (
	"context"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

// ContractPaymentFilter selects rent payments in listings. Zero fields match everything.
type ContractPaymentFilter struct {
	ContractID int64
	Status     models.ContractPaymentStatus
	// OverdueOn restricts to pending payments due before that day.
	OverdueOn models.Date
}

// ListPaymentMethods returns the payment methods by name.
func (db *Manager) ListPaymentMethods(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, name, description, is_active FROM payment_methods
		WHERE NOT $1 OR is_active ORDER BY name`, activeOnly)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (m models.PaymentMethod, err error) {
		err = row.Scan(&m.ID, &m.Name, &m.Description, &m.IsActive)
		return m, err
	})
}

const contractPaymentColumns = `cp.id, cp.contract_id, cp.payment_method_id, pm.name, cp.amount, cp.due_date,
	cp.payment_date, cp.status, cp.receipt_number, cp.notes, cp.created_at, cp.updated_at`

const contractPaymentFrom = ` FROM contract_payments cp JOIN payment_methods pm ON pm.id = cp.payment_method_id`

func scanContractPayment(row pgx.Row) (p models.ContractPayment, err error) {
	err = row.Scan(&p.ID, &p.ContractID, &p.PaymentMethodID, &p.MethodName, &p.Amount, &p.DueDate,
		&p.PaymentDate, &p.Status, &p.ReceiptNumber, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListContractPayments returns the rent payments matching f, latest due date first.
func (db *Manager) ListContractPayments(ctx context.Context, f ContractPaymentFilter) ([]models.ContractPayment, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+contractPaymentColumns+contractPaymentFrom+`
		WHERE ($1 = 0 OR cp.contract_id = $1)
		  AND ($2 = '' OR cp.status = $2)
		  AND ($3::date IS NULL OR (cp.status = 'pending' AND cp.due_date < $3::date))
		ORDER BY cp.due_date DESC, cp.id DESC`,
		f.ContractID, string(f.Status), f.OverdueOn)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanContractPayment)
}

// GetContractPayment returns the rent payment with the given id.
func (db *Manager) GetContractPayment(ctx context.Context, id int64) (models.ContractPayment, error) {
	p, err := scanContractPayment(db.dbpool.QueryRow(ctx, `SELECT `+contractPaymentColumns+contractPaymentFrom+`
		WHERE cp.id = $1`, id))
	return p, translate(err)
}

// CreateContractPayment inserts a rent payment.
func (db *Manager) CreateContractPayment(ctx context.Context, p models.ContractPayment) (models.ContractPayment, error) {
	var id int64
	err := db.dbpool.QueryRow(ctx, `INSERT INTO contract_payments
		(contract_id, payment_method_id, amount, due_date, payment_date, status, receipt_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.ContractID, p.PaymentMethodID, p.Amount, p.DueDate, p.PaymentDate, string(p.Status), p.ReceiptNumber,
		p.Notes).Scan(&id)
	if err != nil {
		return models.ContractPayment{}, translate(err)
	}
	return db.GetContractPayment(ctx, id)
}

// MarkContractPaymentPaid sets a rent payment as paid on the given day.
func (db *Manager) MarkContractPaymentPaid(ctx context.Context, id int64, paidOn models.Date, receipt string) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE contract_payments SET
		status = 'paid', payment_date = $2, receipt_number = CASE WHEN $3 = '' THEN receipt_number ELSE $3 END,
		updated_at = NOW() WHERE id = $1`, id, paidOn, receipt))
}
