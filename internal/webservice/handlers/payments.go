package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// RentPaymentService manages the rent payments of the contracts.
type RentPaymentService interface {
	PaymentMethods(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error)
	Payments(ctx context.Context, contractID int64, status models.ContractPaymentStatus, overdue bool) ([]models.ContractPayment, error)
	Payment(ctx context.Context, id int64) (models.ContractPayment, error)
	CreatePayment(ctx context.Context, p models.ContractPayment) (models.ContractPayment, error)
	MarkPaid(ctx context.Context, id int64, receipt string) (models.ContractPayment, error)
}

// Payments is the rent payments module.
type Payments struct {
	svc RentPaymentService
}

// NewPayments creates the rent payments module.
func NewPayments(svc RentPaymentService) *Payments {
	return &Payments{svc: svc}
}

// Name implements webservice.Module.
func (*Payments) Name() string { return "payments" }

// Register implements webservice.Module.
func (p *Payments) Register(r *mux.Router) {
	r.HandleFunc("/", p.list).Methods(http.MethodGet)
	r.HandleFunc("/", p.create).Methods(http.MethodPost)
	r.HandleFunc("/methods", p.methods).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}", p.get).Methods(http.MethodGet)
	r.HandleFunc("/{id:[0-9]+}/paid", p.markPaid).Methods(http.MethodPost)
}

func validPaymentStatus(s models.ContractPaymentStatus) bool {
	switch s {
	case "", models.ContractPaymentPending, models.ContractPaymentPaid, models.ContractPaymentOverdue, models.ContractPaymentPartial:
		return true
	}
	return false
}

func (p *Payments) list(w http.ResponseWriter, r *http.Request) {
	contractID, err := queryID(r, "contract")
	if err != nil {
		writeError(w, r, err)
		return
	}
	overdue, err := queryBool(r, "overdue")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := models.ContractPaymentStatus(r.URL.Query().Get("status"))
	if !validPaymentStatus(status) {
		writeError(w, r, validate.Errorf("unknown payment status %q", status))
		return
	}

	payments, err := p.svc.Payments(r.Context(), contractID, status, overdue)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(payments))
}

func (p *Payments) create(w http.ResponseWriter, r *http.Request) {
	var payment models.ContractPayment
	if err := readJSON(w, r, &payment); err != nil {
		writeError(w, r, err)
		return
	}
	payment.ID = 0
	created, err := p.svc.CreatePayment(r.Context(), payment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, created)
}

func (p *Payments) methods(w http.ResponseWriter, r *http.Request) {
	all, err := queryBool(r, "all")
	if err != nil {
		writeError(w, r, err)
		return
	}
	methods, err := p.svc.PaymentMethods(r.Context(), !all)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list(methods))
}

func (p *Payments) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := p.svc.Payment(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, payment)
}

type markPaidRequest struct {
	ReceiptNumber string `json:"receipt_number" validate:"max=50"`
}

func (p *Payments) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req markPaidRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := p.svc.MarkPaid(r.Context(), id, req.ReceiptNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, payment)
}
