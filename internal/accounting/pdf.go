package accounting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// displayDate formats d as dd/mm/yyyy.
func displayDate(d models.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Time().Format("02/01/2006")
}

// Filename returns the name of the PDF file of inv.
func Filename(inv models.Invoice) string {
	if inv.Number == "" {
		return fmt.Sprintf("factura-%d.pdf", inv.ID)
	}
	return inv.Number + ".pdf"
}

// RenderPDF writes the invoice document of inv, issued by company to customer, to w.
func RenderPDF(w io.Writer, company models.Company, customer models.Customer, inv models.Invoice) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Factura "+inv.Number, true)
	pdf.SetCreator(company.Name, true)
	pdf.SetCreationDate(inv.CreatedAt)
	pdf.AddPage()

	// Company header.
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(120, 8, tr(company.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	title := "FACTURA"
	if inv.Number == "" {
		title = "BORRADOR"
	}
	pdf.CellFormat(0, 8, title, "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range []string{company.Address, company.Phone, company.Email, company.Website} {
		if line != "" {
			pdf.CellFormat(120, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	if company.TaxID != "" {
		pdf.CellFormat(120, 5, tr("CUIT: "+company.TaxID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Invoice and customer details.
	pdf.SetFont("Arial", "", 10)
	details := [][2]string{
		{"Número", inv.Number},
		{"Fecha", displayDate(inv.Date)},
		{"Vencimiento", displayDate(inv.DueDate)},
		{"Estado", inv.Status.Label()},
		{"Cliente", customer.FullName()},
	}
	if customer.Document != "" {
		details = append(details, [2]string{"Documento", customer.Document})
	}
	if addr := customer.Address.Full(); addr != "" {
		details = append(details, [2]string{"Domicilio", addr})
	}
	for _, d := range details {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, tr(d[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(d[1]), "", 1, "L", false, 0, "")
	}
	if inv.Description != "" {
		pdf.Ln(2)
		pdf.MultiCell(0, 5, tr(inv.Description), "", "L", false)
	}
	pdf.Ln(4)

	// Items.
	widths := []float64{95, 20, 35, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Concepto", "Cantidad", "Precio unitario", "Subtotal"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(widths[0], 6, tr(it.Concept), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, strconv.FormatInt(it.Quantity, 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, it.PriceUnit.Format(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, it.Subtotal().Format(), "1", 1, "R", false, 0, "")
	}

	// Totals.
	pdf.Ln(2)
	totals := [][2]string{{"Total", inv.TotalAmount.Format()}}
	if len(inv.Payments) > 0 {
		totals = append(totals, [2]string{"Pagado", inv.Paid().Format()})
	}
	totals = append(totals, [2]string{"Saldo", inv.Balance().Format()})
	for _, t := range totals {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(widths[0]+widths[1]+widths[2], 6, t[0], "", 0, "R", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(widths[3], 6, t[1], "", 1, "R", false, 0, "")
	}

	// Payments.
	if len(inv.Payments) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(0, 7, "Pagos recibidos", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, p := range inv.Payments {
			pdf.CellFormat(35, 6, displayDate(p.Date), "", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, tr(p.Method), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 6, p.Amount.Format(), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("could not render invoice %d: %v", inv.ID, err)
	}
	return pdf.Output(w)
}

// PDF returns the document of an invoice.
func (s *Service) PDF(ctx context.Context, id int64) ([]byte, models.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, models.Invoice{}, err
	}
	customer, err := s.store.GetCustomer(ctx, inv.CustomerID)
	if err != nil {
		return nil, models.Invoice{}, err
	}

	var buf bytes.Buffer
	if err := RenderPDF(&buf, s.companyInfo(), customer, inv); err != nil {
		return nil, models.Invoice{}, err
	}
	return buf.Bytes(), inv, nil
}

// SendByEmail mails the document of an invoice to its customer and marks a validated invoice as sent.
func (s *Service) SendByEmail(ctx context.Context, id int64) (models.Invoice, error) {
	if s.mailer == nil {
		return models.Invoice{}, fmt.Errorf("no mailer configured")
	}

	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return models.Invoice{}, err
	}
	if inv.Status == models.InvoiceDraft || inv.Status == models.InvoiceCancelled {
		return models.Invoice{}, fmt.Errorf("%w: %s invoices cannot be sent", ErrLocked, inv.Status)
	}
	customer, err := s.store.GetCustomer(ctx, inv.CustomerID)
	if err != nil {
		return models.Invoice{}, err
	}
	if customer.Email == "" {
		return models.Invoice{}, validate.Errorf("customer %s has no e-mail address", customer.FullName())
	}

	company := s.companyInfo()
	var buf bytes.Buffer
	if err := RenderPDF(&buf, company, customer, inv); err != nil {
		return models.Invoice{}, err
	}

	msg := mailer.Message{
		ToName:    customer.FullName(),
		ToAddress: customer.Email,
		Subject:   fmt.Sprintf("Factura %s - %s", inv.Number, company.Name),
		Body: fmt.Sprintf("Estimado/a %s:\n\nAdjuntamos la factura %s por %s con vencimiento el %s.\n\nSaludos,\n%s\n",
			customer.FullName(), inv.Number, inv.Balance().Format(), displayDate(inv.DueDate), company.Name),
		Attachments: []mailer.Attachment{{Filename: Filename(inv), ContentType: "application/pdf", Content: buf.Bytes()}},
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return models.Invoice{}, err
	}

	if inv.Status == models.InvoiceValidated {
		return s.fire(ctx, inv, TriggerSend)
	}
	return inv, nil
}

func (s *Service) companyInfo() models.Company {
	if s.company == nil {
		return models.Company{}
	}
	return s.company.Company()
}
