package models

import "time"

// ReceiptStatus is the delivery state of an owner receipt.
type ReceiptStatus string

// Owner receipt statuses.
const (
	ReceiptGenerated ReceiptStatus = "generated"
	ReceiptSent      ReceiptStatus = "sent"
	ReceiptFailed    ReceiptStatus = "failed"
)

// Label returns the display name of s.
func (s ReceiptStatus) Label() string {
	switch s {
	case ReceiptGenerated:
		return "Generado"
	case ReceiptSent:
		return "Enviado"
	case ReceiptFailed:
		return "Error en envío"
	}
	return string(s)
}

// CanResend reports whether a receipt in status s may be mailed again.
func (s ReceiptStatus) CanResend() bool {
	return s == ReceiptGenerated || s == ReceiptFailed
}

// OwnerReceipt settles a rent invoice with the owner of the property: the amount billed,
// the commission withheld by the agency and what the owner receives.
type OwnerReceipt struct {
	ID                 int64         `json:"id"`
	Number             string        `json:"receipt_number"`
	InvoiceID          int64         `json:"invoice_id"`
	InvoiceNumber      string        `json:"invoice_number,omitempty"`
	EmailSentTo        string        `json:"email_sent_to"`
	GrossAmount        Money         `json:"gross_amount"`
	DiscountPercentage float64       `json:"discount_percentage"`
	DiscountAmount     Money         `json:"discount_amount"`
	NetAmount          Money         `json:"net_amount"`
	Status             ReceiptStatus `json:"status"`
	ErrorMessage       string        `json:"error_message,omitempty"`
	GeneratedAt        time.Time     `json:"generated_at"`
	SentAt             *time.Time    `json:"sent_at,omitempty"`
}

// OwnerSettlement returns the commission withheld from gross at pct percent and what is left
// for the owner. The commission is rounded to the cent.
func OwnerSettlement(gross Money, pct float64) (discount, net Money) {
	discount = gross.Percent(pct)
	return discount, gross - discount
}
