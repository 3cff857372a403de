package database

import (
	"context"
	"fmt"
	"time"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

const receiptColumns = `r.id, r.receipt_number, r.invoice_id, i.number, r.email_sent_to, r.gross_amount,
	r.discount_percentage::float8, r.discount_amount, r.net_amount, r.status, r.error_message, r.generated_at, r.sent_at`

const receiptFrom = ` FROM owner_receipts r JOIN invoices i ON i.id = r.invoice_id`

func scanReceipt(row pgx.Row) (r models.OwnerReceipt, err error) {
	err = row.Scan(&r.ID, &r.Number, &r.InvoiceID, &r.InvoiceNumber, &r.EmailSentTo, &r.GrossAmount,
		&r.DiscountPercentage, &r.DiscountAmount, &r.NetAmount, &r.Status, &r.ErrorMessage, &r.GeneratedAt, &r.SentAt)
	return r, err
}

// ListOwnerReceipts returns the receipts of an invoice, or of every invoice when invoiceID is 0, newest first.
func (db *Manager) ListOwnerReceipts(ctx context.Context, invoiceID int64) ([]models.OwnerReceipt, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+receiptColumns+receiptFrom+`
		WHERE ($1 = 0 OR r.invoice_id = $1) ORDER BY r.generated_at DESC, r.id DESC`, invoiceID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanReceipt)
}

// GetOwnerReceipt returns the receipt with the given id.
func (db *Manager) GetOwnerReceipt(ctx context.Context, id int64) (models.OwnerReceipt, error) {
	r, err := scanReceipt(db.dbpool.QueryRow(ctx, `SELECT `+receiptColumns+receiptFrom+` WHERE r.id = $1`, id))
	return r, translate(err)
}

// CreateOwnerReceipt inserts a receipt. It fails with ErrConflict when its number is taken.
func (db *Manager) CreateOwnerReceipt(ctx context.Context, r models.OwnerReceipt) (models.OwnerReceipt, error) {
	var id int64
	err := db.dbpool.QueryRow(ctx, `INSERT INTO owner_receipts
		(receipt_number, invoice_id, email_sent_to, gross_amount, discount_percentage, discount_amount, net_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		r.Number, r.InvoiceID, r.EmailSentTo, r.GrossAmount, r.DiscountPercentage, r.DiscountAmount, r.NetAmount,
		string(r.Status)).Scan(&id)
	if err != nil {
		return models.OwnerReceipt{}, translate(err)
	}
	return db.GetOwnerReceipt(ctx, id)
}

// SetOwnerReceiptStatus records the outcome of a delivery. sentAt is stored only for sent receipts.
func (db *Manager) SetOwnerReceiptStatus(ctx context.Context, id int64, status models.ReceiptStatus, errMsg string, sentAt time.Time) error {
	var sent *time.Time
	if status == models.ReceiptSent {
		sent = &sentAt
	}
	return expectOne(db.dbpool.Exec(ctx, `UPDATE owner_receipts SET status = $2, error_message = $3, sent_at = $4
		WHERE id = $1`, id, string(status), errMsg, sent))
}

// MaxReceiptSequence returns the highest sequence of the REC-<year>-<seq> numbers of a year, or 0.
func (db *Manager) MaxReceiptSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := db.dbpool.QueryRow(ctx, `SELECT COALESCE(MAX(split_part(receipt_number, '-', 3)::int), 0) FROM owner_receipts
		WHERE receipt_number ~ $1`, fmt.Sprintf(`^REC-%04d-[0-9]+$`, year)).Scan(&seq)
	return seq, translate(err)
}
