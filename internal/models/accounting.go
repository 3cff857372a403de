package models

import "time"

// InvoiceStatus is the lifecycle state of an invoice.
type InvoiceStatus string

// Invoice statuses.
const (
	InvoiceDraft     InvoiceStatus = "draft"
	InvoiceValidated InvoiceStatus = "validated"
	InvoiceSent      InvoiceStatus = "sent"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// InvoiceStatuses lists the statuses in display order.
var InvoiceStatuses = []InvoiceStatus{InvoiceDraft, InvoiceValidated, InvoiceSent, InvoicePaid, InvoiceCancelled}

// Label returns the human readable name of the status.
func (s InvoiceStatus) Label() string {
	switch s {
	case InvoiceDraft:
		return "Borrador"
	case InvoiceValidated:
		return "Validada"
	case InvoiceSent:
		return "Enviada"
	case InvoicePaid:
		return "Pagada"
	case InvoiceCancelled:
		return "Cancelada"
	}
	return string(s)
}

// Open reports whether the invoice still expects payments.
func (s InvoiceStatus) Open() bool {
	return s == InvoiceValidated || s == InvoiceSent
}

// Invoice is a bill issued to a customer, optionally for a contract.
type Invoice struct {
	ID           int64         `json:"id"`
	Number       string        `json:"number" validate:"max=50"`
	Date         Date          `json:"date"`
	DueDate      Date          `json:"due_date"`
	CustomerID   int64         `json:"customer_id" validate:"required"`
	CustomerName string        `json:"customer_name,omitempty"`
	ContractID   int64         `json:"contract_id,omitempty"`
	Description  string        `json:"description,omitempty"`
	TotalAmount  Money         `json:"total_amount"`
	Status       InvoiceStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	Items    []InvoiceItem `json:"items,omitempty"`
	Payments []Payment     `json:"payments,omitempty"`
}

// Paid returns the sum of the invoice payments.
func (inv Invoice) Paid() Money {
	var total Money
	for _, p := range inv.Payments {
		total += p.Amount
	}
	return total
}

// Balance returns the amount still due.
func (inv Invoice) Balance() Money {
	return inv.TotalAmount - inv.Paid()
}

// ComputeTotal returns the sum of the item subtotals.
func (inv Invoice) ComputeTotal() Money {
	var total Money
	for _, it := range inv.Items {
		total += it.Subtotal()
	}
	return total
}

// InvoiceItem is a line of an invoice.
type InvoiceItem struct {
	ID        int64  `json:"id"`
	InvoiceID int64  `json:"invoice_id"`
	Concept   string `json:"concept" validate:"required,max=200"`
	Quantity  int64  `json:"quantity" validate:"gte=1"`
	PriceUnit Money  `json:"price_unit" validate:"gte=0"`
}

// Subtotal returns quantity times unit price.
func (it InvoiceItem) Subtotal() Money {
	return it.PriceUnit.Times(it.Quantity)
}

// Payment is a payment received against an invoice.
type Payment struct {
	ID            int64     `json:"id"`
	InvoiceID     int64     `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	Date          Date      `json:"payment_date"`
	Amount        Money     `json:"amount" validate:"gt=0"`
	Method        string    `json:"method" validate:"required,max=50"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// InvoiceFilter selects invoices in listings.
type InvoiceFilter struct {
	Status     InvoiceStatus
	CustomerID int64
	ContractID int64
	Search     string
}

// AgentInvoice is an open invoice with the agent in charge of its contract.
type AgentInvoice struct {
	Invoice
	AgentID    int64 `json:"agent_id"`
	PaidAmount Money `json:"paid_amount"`
}

// Balance returns the amount still due.
func (a AgentInvoice) Balance() Money {
	return a.TotalAmount - a.PaidAmount
}

// AccountingSummary is the overview of the accounting dashboard.
type AccountingSummary struct {
	CountByStatus   map[InvoiceStatus]int `json:"count_by_status"`
	TotalInvoiced   Money                 `json:"total_invoiced"`
	TotalCollected  Money                 `json:"total_collected"`
	Outstanding     Money                 `json:"outstanding"`
	OverdueCount    int                   `json:"overdue_count"`
	RecentInvoices  []Invoice             `json:"recent_invoices"`
	UnnumberedCount int                   `json:"unnumbered_count"`
}

// Dashboard is the overview of the back office home.
type Dashboard struct {
	Agents              int `json:"agents"`
	Customers           int `json:"customers"`
	Properties          int `json:"properties"`
	AvailableProperties int `json:"available_properties"`
	ActiveContracts     int `json:"active_contracts"`
	ExpiringContracts   int `json:"expiring_contracts"`
	OverduePayments     int `json:"overdue_payments"`
	OpenInvoices        int `json:"open_invoices"`
}
