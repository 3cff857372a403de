package admin

import (
	"github.com/inmobiliaria/backoffice/internal/models"
)

// invoiceLabel displays an invoice by its number, or by its id while it has none.
const invoiceLabel = "COALESCE(NULLIF(i.number, ''), '#' || i.id::text)"

const customerName = "c.first_name || ' ' || c.last_name"

func invoiceStatusChoices() []Choice {
	choices := make([]Choice, 0, len(models.InvoiceStatuses))
	for _, s := range models.InvoiceStatuses {
		choices = append(choices, Choice{Value: string(s), Label: s.Label()})
	}
	return choices
}

// InvoiceAdmin is the registration of the invoices, with their items and payments inline.
func InvoiceAdmin() *Model {
	return &Model{
		Slug:          "invoice",
		Verbose:       "Factura",
		VerbosePlural: "Facturas",
		From:          "invoices i JOIN customers c ON c.id = i.customer_id",
		PK:            "i.id",
		Fields: []Field{
			{Name: "name", Label: "Número", Expr: "i.number"},
			{Name: "partner", Label: "Cliente", Expr: customerName},
			{Name: "invoice_date", Label: "Fecha", Expr: "i.date", Kind: KindDate},
			{Name: "invoice_date_due", Label: "Vencimiento", Expr: "i.due_date", Kind: KindDate},
			{Name: "state", Label: "Estado", Expr: "i.status", Kind: KindChoice, Choices: invoiceStatusChoices()},
			{Name: "amount_total", Label: "Total", Expr: "i.total_amount", Kind: KindMoney},
			{Name: "contract", Label: "Contrato", Expr: "i.contract_id", Kind: KindNumber},
			{Name: "description", Label: "Descripción", Expr: "i.description"},
			{Name: "partner__full_name", Label: "Nombre del cliente", Expr: customerName, Hidden: true},
		},
		ListDisplay: []string{"name", "partner", "invoice_date", "invoice_date_due", "state", "amount_total"},
		ListFilter: []Filter{
			{Field: "state", Kind: FilterChoice},
			{Field: "invoice_date", Kind: FilterDate},
			{Field: "invoice_date_due", Kind: FilterDate},
			{Field: "partner", Kind: FilterRelated, Expr: "i.customer_id",
				ChoicesSQL: "SELECT id::text, first_name || ' ' || last_name FROM customers ORDER BY last_name, first_name, id"},
		},
		SearchFields: []string{"name", "partner__full_name"},
		Ordering:     "i.date DESC, i.id DESC",
		Inlines: []Inline{
			{Model: InvoiceItemAdmin(), FK: "it.invoice_id", Extra: 1},
			{Model: PaymentAdmin(), FK: "p.invoice_id", Extra: 0},
		},
	}
}

// InvoiceItemAdmin is the registration of the invoice lines.
func InvoiceItemAdmin() *Model {
	return &Model{
		Slug:          "invoiceitem",
		Verbose:       "Ítem de factura",
		VerbosePlural: "Ítems de factura",
		From:          "invoice_items it JOIN invoices i ON i.id = it.invoice_id",
		PK:            "it.id",
		Fields: []Field{
			{Name: "move", Label: "Factura", Expr: invoiceLabel},
			{Name: "name", Label: "Concepto", Expr: "it.concept"},
			{Name: "quantity", Label: "Cantidad", Expr: "it.quantity", Kind: KindNumber},
			{Name: "price_unit", Label: "Precio unitario", Expr: "it.price_unit", Kind: KindMoney},
			{Name: "price_subtotal", Label: "Subtotal", Expr: "it.quantity * it.price_unit", Kind: KindMoney},
		},
		ListDisplay:  []string{"move", "name", "quantity", "price_unit", "price_subtotal"},
		SearchFields: []string{"name"},
		Ordering:     "it.id",
	}
}

// PaymentAdmin is the registration of the invoice payments.
func PaymentAdmin() *Model {
	return &Model{
		Slug:          "payment",
		Verbose:       "Pago",
		VerbosePlural: "Pagos",
		From:          "invoice_payments p JOIN invoices i ON i.id = p.invoice_id",
		PK:            "p.id",
		Fields: []Field{
			{Name: "invoice", Label: "Factura", Expr: invoiceLabel},
			{Name: "payment_date", Label: "Fecha de pago", Expr: "p.payment_date", Kind: KindDate},
			{Name: "amount", Label: "Monto", Expr: "p.amount", Kind: KindMoney},
			{Name: "method", Label: "Método", Expr: "p.method"},
			{Name: "notes", Label: "Notas", Expr: "p.notes"},
			{Name: "invoice__name", Label: "Número de factura", Expr: "i.number", Hidden: true},
		},
		ListDisplay: []string{"invoice", "payment_date", "amount", "method"},
		ListFilter: []Filter{
			{Field: "method", Kind: FilterChoice,
				ChoicesSQL: "SELECT DISTINCT method, method FROM invoice_payments ORDER BY 1"},
			{Field: "payment_date", Kind: FilterDate},
		},
		SearchFields: []string{"invoice__name", "method"},
		Ordering:     "p.payment_date DESC, p.id DESC",
	}
}

// RegisterInvoicing registers the invoices, their items and their payments.
func RegisterInvoicing(s *Site) error {
	for _, m := range []*Model{InvoiceAdmin(), InvoiceItemAdmin(), PaymentAdmin()} {
		if err := s.RegisterModel(m); err != nil {
			return err
		}
	}
	return nil
}
