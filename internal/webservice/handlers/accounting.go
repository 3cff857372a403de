package handlers

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// AccountingService manages invoices, their items and their payments.
type AccountingService interface {
	List(ctx context.Context, f models.InvoiceFilter) ([]models.Invoice, error)
	Get(ctx context.Context, id int64) (models.Invoice, error)
	Summary(ctx context.Context) (models.AccountingSummary, error)
	Create(ctx context.Context, inv models.Invoice) (models.Invoice, error)
	Update(ctx context.Context, inv models.Invoice) (models.Invoice, error)
	Delete(ctx context.Context, id int64) error

	Validate(ctx context.Context, id int64) (models.Invoice, error)
	MarkSent(ctx context.Context, id int64) (models.Invoice, error)
	Cancel(ctx context.Context, id int64) (models.Invoice, error)
	SendByEmail(ctx context.Context, id int64) (models.Invoice, error)
	PDF(ctx context.Context, id int64) ([]byte, models.Invoice, error)

	AddItem(ctx context.Context, it models.InvoiceItem) (models.InvoiceItem, error)
	UpdateItem(ctx context.Context, it models.InvoiceItem) (models.InvoiceItem, error)
	DeleteItem(ctx context.Context, id int64) error

	Payments(ctx context.Context, invoiceID int64) ([]models.Payment, error)
	Payment(ctx context.Context, id int64) (models.Payment, error)
	RecordPayment(ctx context.Context, p models.Payment) (models.Payment, models.Invoice, error)
	DeletePayment(ctx context.Context, id int64) (models.Invoice, error)

	ReceiptPreview(ctx context.Context, invoiceID int64) (accounting.ReceiptData, error)
	GenerateReceipt(ctx context.Context, invoiceID int64) (models.OwnerReceipt, error)
	Receipts(ctx context.Context, invoiceID int64) ([]models.OwnerReceipt, error)
	Receipt(ctx context.Context, id int64) (models.OwnerReceipt, error)
	ReceiptPDF(ctx context.Context, id int64) ([]byte, models.OwnerReceipt, error)
	SendReceipt(ctx context.Context, id int64) (models.OwnerReceipt, error)
	ResendReceipt(ctx context.Context, id int64) (models.OwnerReceipt, error)
}

// Accounting is the invoicing module.
type Accounting struct {
	svc AccountingService
}

// NewAccounting creates the invoicing module.
func NewAccounting(svc AccountingService) *Accounting {
	return &Accounting{svc: svc}
}

// Name implements webservice.Module.
func (*Accounting) Name() string { return "accounting" }

// Register implements webservice.Module.
func (a *Accounting) Register(r *mux.Router) {
	r.HandleFunc("/", a.dashboard).Methods(http.MethodGet)

	r.HandleFunc("/invoices", a.list).Methods(http.MethodGet)
	r.HandleFunc("/invoices", a.create).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{id:[0-9]+}", a.get).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{id:[0-9]+}", a.update).Methods(http.MethodPut)
	r.HandleFunc("/invoices/{id:[0-9]+}", a.delete).Methods(http.MethodDelete)
	r.HandleFunc("/invoices/{id:[0-9]+}/pdf", a.pdf).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{id:[0-9]+}/validate", a.transition(a.svc.Validate)).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{id:[0-9]+}/send", a.transition(a.svc.MarkSent)).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{id:[0-9]+}/cancel", a.transition(a.svc.Cancel)).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{id:[0-9]+}/email", a.transition(a.svc.SendByEmail)).Methods(http.MethodPost)

	r.HandleFunc("/invoices/{id:[0-9]+}/items", a.addItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{id:[0-9]+}", a.updateItem).Methods(http.MethodPut)
	r.HandleFunc("/items/{id:[0-9]+}", a.deleteItem).Methods(http.MethodDelete)

	r.HandleFunc("/invoices/{id:[0-9]+}/payments", a.payments).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{id:[0-9]+}/payments", a.recordPayment).Methods(http.MethodPost)
	r.HandleFunc("/payments/{id:[0-9]+}", a.payment).Methods(http.MethodGet)
	r.HandleFunc("/payments/{id:[0-9]+}", a.deletePayment).Methods(http.MethodDelete)

	r.HandleFunc("/invoices/{id:[0-9]+}/receipt", a.receiptPreview).Methods(http.MethodGet)
	r.HandleFunc("/invoices/{id:[0-9]+}/receipt", a.generateReceipt).Methods(http.MethodPost)
	r.HandleFunc("/invoices/{id:[0-9]+}/receipts", a.receipts).Methods(http.MethodGet)
	r.HandleFunc("/receipts", a.receipts).Methods(http.MethodGet)
	r.HandleFunc("/receipts/{id:[0-9]+}", a.receiptAction(a.svc.Receipt)).Methods(http.MethodGet)
	r.HandleFunc("/receipts/{id:[0-9]+}/pdf", a.receiptPDF).Methods(http.MethodGet)
	r.HandleFunc("/receipts/{id:[0-9]+}/send", a.receiptAction(a.svc.SendReceipt)).Methods(http.MethodPost)
	r.HandleFunc("/receipts/{id:[0-9]+}/resend", a.receiptAction(a.svc.ResendReceipt)).Methods(http.MethodPost)
}

func (a *Accounting) dashboard(w http.ResponseWriter, r *http.Request) {
	s, err := a.svc.Summary(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

func (a *Accounting) list(w http.ResponseWriter, r *http.Request) {
	f := models.InvoiceFilter{
		Status: models.InvoiceStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("q"),
	}
	if f.Status != "" && !slices.Contains(models.InvoiceStatuses, f.Status) {
		writeError(w, r, validate.Errorf("unknown invoice status %q", f.Status))
		return
	}
	var err error
	if f.CustomerID, err = queryID(r, "customer"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.ContractID, err = queryID(r, "contract"); err != nil {
		writeError(w, r, err)
		return
	}

	invoices, err := a.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(invoices))
}

func (a *Accounting) create(w http.ResponseWriter, r *http.Request) {
	var inv models.Invoice
	if err := readJSON(w, r, &inv); err != nil {
		writeError(w, r, err)
		return
	}
	inv.ID = 0
	created, err := a.svc.Create(r.Context(), inv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (a *Accounting) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := a.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, inv)
}

func (a *Accounting) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var inv models.Invoice
	if err := readJSON(w, r, &inv); err != nil {
		writeError(w, r, err)
		return
	}
	inv.ID = id
	updated, err := a.svc.Update(r.Context(), inv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (a *Accounting) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Accounting) pdf(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, inv, err := a.svc.PDF(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	disposition := "inline"
	if r.URL.Query().Has("download") {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, accounting.Filename(inv)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// transition serves the operations changing the status of an invoice.
func (a *Accounting) transition(fn func(ctx context.Context, id int64) (models.Invoice, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		inv, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, inv)
	}
}

func (a *Accounting) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var it models.InvoiceItem
	if err := readJSON(w, r, &it); err != nil {
		writeError(w, r, err)
		return
	}
	it.ID = 0
	it.InvoiceID = id
	created, err := a.svc.AddItem(r.Context(), it)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (a *Accounting) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var it models.InvoiceItem
	if err := readJSON(w, r, &it); err != nil {
		writeError(w, r, err)
		return
	}
	it.ID = id
	updated, err := a.svc.UpdateItem(r.Context(), it)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, updated)
}

func (a *Accounting) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.svc.DeleteItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Accounting) payments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := a.svc.Payments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(payments))
}

type paymentResponse struct {
	Payment models.Payment `json:"payment"`
	Invoice models.Invoice `json:"invoice"`
}

func (a *Accounting) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p models.Payment
	if err := readJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = 0
	p.InvoiceID = id
	created, inv, err := a.svc.RecordPayment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, paymentResponse{Payment: created, Invoice: inv})
}

func (a *Accounting) payment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.svc.Payment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

func (a *Accounting) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inv, err := a.svc.DeletePayment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, inv)
}

func (a *Accounting) receiptPreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := a.svc.ReceiptPreview(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}

func (a *Accounting) generateReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	receipt, err := a.svc.GenerateReceipt(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, receipt)
}

// receipts lists the receipts of the invoice in the path, or every receipt without one.
func (a *Accounting) receipts(w http.ResponseWriter, r *http.Request) {
	var invoiceID int64
	if _, ok := mux.Vars(r)["id"]; ok {
		var err error
		if invoiceID, err = pathID(r, "id"); err != nil {
			writeError(w, r, err)
			return
		}
	}
	receipts, err := a.svc.Receipts(r.Context(), invoiceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(receipts))
}

// receiptAction serves the operations returning a single owner receipt.
func (a *Accounting) receiptAction(fn func(ctx context.Context, id int64) (models.OwnerReceipt, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		receipt, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, receipt)
	}
}

func (a *Accounting) receiptPDF(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, receipt, err := a.svc.ReceiptPDF(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	disposition := "inline"
	if r.URL.Query().Has("download") {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, accounting.ReceiptFilename(receipt)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
