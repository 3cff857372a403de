package accounting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jung-kurt/gofpdf"
)

// ErrReceiptSent is returned when an owner receipt was already delivered.
var ErrReceiptSent = errors.New("owner receipt was already sent")

// FormatReceiptNumber returns the owner receipt number of a sequence in a year, like REC-2025-0001.
func FormatReceiptNumber(year, seq int) string {
	return fmt.Sprintf("REC-%04d-%04d", year, seq)
}

// ReceiptFilename returns the name of the PDF file of r.
func ReceiptFilename(r models.OwnerReceipt) string {
	return "comprobante_" + r.Number + ".pdf"
}

// ReceiptData is what an owner receipt settles: a rent invoice, its contract and the people involved.
type ReceiptData struct {
	Invoice  models.Invoice  `json:"invoice"`
	Contract models.Contract `json:"contract"`
	Property models.Property `json:"property"`
	Owner    models.Customer `json:"owner"`
	Tenant   models.Customer `json:"tenant"`

	GrossAmount        models.Money `json:"gross_amount"`
	DiscountPercentage float64      `json:"discount_percentage"`
	DiscountAmount     models.Money `json:"discount_amount"`
	NetAmount          models.Money `json:"net_amount"`
}

// Period returns the month billed, like "marzo 2025".
func (d ReceiptData) Period() string {
	return fmt.Sprintf("%s %d", monthNames[d.Invoice.Date.Month()-1], d.Invoice.Date.Year())
}

// CanGenerateReceipt reports why an owner receipt cannot be generated for an invoice, or nil when it can.
func (s *Service) CanGenerateReceipt(ctx context.Context, invoiceID int64) error {
	_, err := s.ReceiptPreview(ctx, invoiceID)
	return err
}

// ReceiptPreview validates an invoice for an owner receipt and returns the amounts the receipt would carry.
func (s *Service) ReceiptPreview(ctx context.Context, invoiceID int64) (ReceiptData, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return ReceiptData{}, err
	}
	switch inv.Status {
	case models.InvoiceValidated, models.InvoiceSent, models.InvoicePaid:
	default:
		return ReceiptData{}, fmt.Errorf("%w: the invoice must be validated, sent or paid, not %s", ErrLocked, inv.Status)
	}
	if inv.TotalAmount <= 0 {
		return ReceiptData{}, validate.Errorf("invoice %d has no amount to settle", inv.ID)
	}
	if inv.Number == "" || inv.Date.IsZero() {
		return ReceiptData{}, validate.Errorf("invoice %d has no number or date", inv.ID)
	}
	if inv.ContractID == 0 {
		return ReceiptData{}, validate.Errorf("invoice %s has no contract", inv.Number)
	}

	data, err := s.receiptData(ctx, inv)
	if err != nil {
		return ReceiptData{}, err
	}
	if data.Owner.Email == "" {
		return ReceiptData{}, validate.Errorf("owner %s has no e-mail", data.Owner.FullName())
	}
	if err := validate.Var(data.Owner.Email, "email"); err != nil {
		return ReceiptData{}, validate.Errorf("owner e-mail %q is not valid", data.Owner.Email)
	}

	receipts, err := s.store.ListOwnerReceipts(ctx, inv.ID)
	if err != nil {
		return ReceiptData{}, err
	}
	for _, r := range receipts {
		if r.Status == models.ReceiptSent {
			return ReceiptData{}, fmt.Errorf("%w: receipt %s settles invoice %s", ErrReceiptSent, r.Number, inv.Number)
		}
	}
	return data, nil
}

// receiptData loads the contract, property, owner and tenant of inv and computes the settlement.
func (s *Service) receiptData(ctx context.Context, inv models.Invoice) (ReceiptData, error) {
	data := ReceiptData{Invoice: inv}
	var err error
	if data.Contract, err = s.store.GetContract(ctx, inv.ContractID); err != nil {
		return ReceiptData{}, fmt.Errorf("could not load contract %d: %w", inv.ContractID, err)
	}
	if data.Property, err = s.store.GetProperty(ctx, data.Contract.PropertyID); err != nil {
		return ReceiptData{}, fmt.Errorf("could not load property %d: %w", data.Contract.PropertyID, err)
	}
	if data.Property.OwnerID == 0 {
		return ReceiptData{}, validate.Errorf("property %q has no owner", data.Property.Title)
	}
	if data.Owner, err = s.store.GetCustomer(ctx, data.Property.OwnerID); err != nil {
		return ReceiptData{}, fmt.Errorf("could not load owner %d: %w", data.Property.OwnerID, err)
	}
	if data.Tenant, err = s.store.GetCustomer(ctx, inv.CustomerID); err != nil {
		return ReceiptData{}, fmt.Errorf("could not load customer %d: %w", inv.CustomerID, err)
	}

	pct := data.Contract.OwnerDiscountPercentage
	if pct < 0 || pct > 100 {
		return ReceiptData{}, validate.Errorf("owner discount must be between 0%% and 100%%, not %.2f%%", pct)
	}
	data.GrossAmount = inv.TotalAmount
	data.DiscountPercentage = pct
	data.DiscountAmount, data.NetAmount = models.OwnerSettlement(inv.TotalAmount, pct)
	return data, nil
}

// Receipts returns the owner receipts of an invoice, or of every invoice when invoiceID is 0.
func (s *Service) Receipts(ctx context.Context, invoiceID int64) ([]models.OwnerReceipt, error) {
	return s.store.ListOwnerReceipts(ctx, invoiceID)
}

// Receipt returns a single owner receipt.
func (s *Service) Receipt(ctx context.Context, id int64) (models.OwnerReceipt, error) {
	return s.store.GetOwnerReceipt(ctx, id)
}

// GenerateReceipt creates the owner receipt of an invoice with the next number of the year.
func (s *Service) GenerateReceipt(ctx context.Context, invoiceID int64) (models.OwnerReceipt, error) {
	data, err := s.ReceiptPreview(ctx, invoiceID)
	if err != nil {
		return models.OwnerReceipt{}, err
	}

	r := models.OwnerReceipt{
		InvoiceID:          data.Invoice.ID,
		EmailSentTo:        data.Owner.Email,
		GrossAmount:        data.GrossAmount,
		DiscountPercentage: data.DiscountPercentage,
		DiscountAmount:     data.DiscountAmount,
		NetAmount:          data.NetAmount,
		Status:             models.ReceiptGenerated,
	}
	year := s.today().Year()
	for range numberAttempts {
		seq, err := s.store.MaxReceiptSequence(ctx, year)
		if err != nil {
			return models.OwnerReceipt{}, err
		}
		r.Number = FormatReceiptNumber(year, seq+1)
		created, err := s.store.CreateOwnerReceipt(ctx, r)
		if errors.Is(err, database.ErrConflict) {
			slog.Debug("Receipt number already taken, retrying", "number", r.Number)
			continue
		}
		if err != nil {
			return models.OwnerReceipt{}, err
		}
		slog.Info("Owner receipt generated", "receipt", created.Number, "invoice", data.Invoice.Number,
			"owner", data.Owner.ID, "net", created.NetAmount)
		return created, nil
	}
	return models.OwnerReceipt{}, fmt.Errorf("could not number the receipt of invoice %d: %w", invoiceID, database.ErrConflict)
}

// ReceiptPDF returns the document of an owner receipt.
func (s *Service) ReceiptPDF(ctx context.Context, id int64) ([]byte, models.OwnerReceipt, error) {
	r, data, err := s.loadReceipt(ctx, id)
	if err != nil {
		return nil, models.OwnerReceipt{}, err
	}
	var buf bytes.Buffer
	if err := RenderReceiptPDF(&buf, s.companyInfo(), r, data); err != nil {
		return nil, models.OwnerReceipt{}, err
	}
	return buf.Bytes(), r, nil
}

// SendReceipt mails an owner receipt with its document attached. Failed deliveries are retried and,
// when every attempt fails, the receipt is marked failed with the error.
func (s *Service) SendReceipt(ctx context.Context, id int64) (models.OwnerReceipt, error) {
	if s.mailer == nil {
		return models.OwnerReceipt{}, fmt.Errorf("no mailer configured")
	}
	r, data, err := s.loadReceipt(ctx, id)
	if err != nil {
		return models.OwnerReceipt{}, err
	}
	if r.Status == models.ReceiptSent {
		return models.OwnerReceipt{}, fmt.Errorf("%w: %s", ErrReceiptSent, r.Number)
	}

	company := s.companyInfo()
	var buf bytes.Buffer
	if err := RenderReceiptPDF(&buf, company, r, data); err != nil {
		return models.OwnerReceipt{}, err
	}
	address := data.Property.Address.Full()
	if address == "" {
		address = data.Property.Title
	}
	msg := mailer.Message{
		ToName:    data.Owner.FullName(),
		ToAddress: r.EmailSentTo,
		Subject:   fmt.Sprintf("Comprobante de Alquiler - %s - %s", address, data.Period()),
		Body: fmt.Sprintf("Estimado/a %s:\n\nAdjuntamos el comprobante %s correspondiente al alquiler de %s del período %s.\n\n"+
			"Monto cobrado: %s\nComisión (%.2f%%): %s\nMonto a liquidar: %s\n\nSaludos,\n%s\n",
			data.Owner.FullName(), r.Number, address, data.Period(),
			r.GrossAmount.Format(), r.DiscountPercentage, r.DiscountAmount.Format(), r.NetAmount.Format(), company.Name),
		Attachments: []mailer.Attachment{{Filename: ReceiptFilename(r), ContentType: "application/pdf", Content: buf.Bytes()}},
	}

	if err := s.deliver(ctx, r, msg); err != nil {
		if serr := s.store.SetOwnerReceiptStatus(ctx, r.ID, models.ReceiptFailed, err.Error(), time.Time{}); serr != nil {
			slog.Error("Could not record the receipt delivery failure", "receipt", r.Number, "err", serr)
		}
		return models.OwnerReceipt{}, fmt.Errorf("could not send receipt %s: %w", r.Number, err)
	}
	if err := s.store.SetOwnerReceiptStatus(ctx, r.ID, models.ReceiptSent, "", time.Now()); err != nil {
		return models.OwnerReceipt{}, err
	}
	slog.Info("Owner receipt sent", "receipt", r.Number, "to", r.EmailSentTo)
	return s.store.GetOwnerReceipt(ctx, r.ID)
}

// ResendReceipt mails again a receipt whose delivery failed.
func (s *Service) ResendReceipt(ctx context.Context, id int64) (models.OwnerReceipt, error) {
	r, err := s.store.GetOwnerReceipt(ctx, id)
	if err != nil {
		return models.OwnerReceipt{}, err
	}
	if !r.Status.CanResend() {
		return models.OwnerReceipt{}, fmt.Errorf("%w: %s", ErrReceiptSent, r.Number)
	}
	if err := s.store.SetOwnerReceiptStatus(ctx, r.ID, models.ReceiptGenerated, "", time.Time{}); err != nil {
		return models.OwnerReceipt{}, err
	}
	slog.Info("Owner receipt reset for resending", "receipt", r.Number)
	return s.SendReceipt(ctx, id)
}

// deliver sends msg, retrying transient failures.
func (s *Service) deliver(ctx context.Context, r models.OwnerReceipt, msg mailer.Message) (err error) {
	for attempt := 1; attempt <= constants.ReceiptSendAttempts; attempt++ {
		if err = s.mailer.Send(ctx, msg); err == nil {
			return nil
		}
		if errors.Is(err, mailer.ErrDisabled) || errors.Is(err, mailer.ErrNoRecipient) || attempt == constants.ReceiptSendAttempts {
			return err
		}
		slog.Warn("Could not send owner receipt, retrying", "receipt", r.Number, "attempt", attempt,
			"max_attempts", constants.ReceiptSendAttempts, "err", err)
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(s.retryDelay):
		}
	}
	return err
}

// loadReceipt returns a receipt with the data it settles.
func (s *Service) loadReceipt(ctx context.Context, id int64) (models.OwnerReceipt, ReceiptData, error) {
	r, err := s.store.GetOwnerReceipt(ctx, id)
	if err != nil {
		return models.OwnerReceipt{}, ReceiptData{}, err
	}
	inv, err := s.store.GetInvoice(ctx, r.InvoiceID)
	if err != nil {
		return models.OwnerReceipt{}, ReceiptData{}, err
	}
	if inv.ContractID == 0 {
		return models.OwnerReceipt{}, ReceiptData{}, validate.Errorf("invoice %s no longer has a contract", inv.Number)
	}
	data, err := s.receiptData(ctx, inv)
	if err != nil {
		return models.OwnerReceipt{}, ReceiptData{}, err
	}
	// The stored amounts win over the current contract terms.
	data.GrossAmount = r.GrossAmount
	data.DiscountPercentage = r.DiscountPercentage
	data.DiscountAmount = r.DiscountAmount
	data.NetAmount = r.NetAmount
	return r, data, nil
}

// RenderReceiptPDF writes the owner receipt document of r, issued by company, to w.
func RenderReceiptPDF(w io.Writer, company models.Company, r models.OwnerReceipt, data ReceiptData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Comprobante "+r.Number, true)
	pdf.SetCreator(company.Name, true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(120, 8, tr(company.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "COMPROBANTE", "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, line := range []string{company.Address, company.Phone, company.Email} {
		if line != "" {
			pdf.CellFormat(120, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	details := [][2]string{
		{"Comprobante", r.Number},
		{"Fecha", displayDate(models.DateOf(r.GeneratedAt))},
		{"Factura", data.Invoice.Number},
		{"Período", data.Period()},
		{"Propietario", data.Owner.FullName()},
		{"Inquilino", data.Tenant.FullName()},
		{"Propiedad", data.Property.Title},
	}
	if addr := data.Property.Address.Full(); addr != "" {
		details = append(details, [2]string{"Domicilio", addr})
	}
	for _, d := range details {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(35, 6, tr(d[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(d[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	amounts := [][2]string{
		{"Monto cobrado", r.GrossAmount.Format()},
		{fmt.Sprintf("Comisión (%.2f%%)", r.DiscountPercentage), "-" + r.DiscountAmount.Format()},
		{"Monto a liquidar", r.NetAmount.Format()},
	}
	pdf.SetFillColor(230, 230, 230)
	for i, a := range amounts {
		style := ""
		fill := false
		if i == len(amounts)-1 {
			style, fill = "B", true
		}
		pdf.SetFont("Arial", style, 11)
		pdf.CellFormat(130, 8, tr(a[0]), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(0, 8, a[1], "1", 1, "R", fill, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("could not render receipt %s: %v", r.Number, err)
	}
	return pdf.Output(w)
}
