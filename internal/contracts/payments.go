package contracts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// PaymentMethods returns the payment methods, only the active ones when activeOnly is set.
func (s *Service) PaymentMethods(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error) {
	return s.store.ListPaymentMethods(ctx, activeOnly)
}

// Payments returns the rent payments of contractID, or of every contract when it is 0.
// With overdue, only the pending payments past their due date are returned.
func (s *Service) Payments(ctx context.Context, contractID int64, status models.ContractPaymentStatus, overdue bool) ([]models.ContractPayment, error) {
	f := database.ContractPaymentFilter{ContractID: contractID, Status: status}
	if overdue {
		f.OverdueOn = s.today()
	}
	return s.store.ListContractPayments(ctx, f)
}

// Payment returns a rent payment.
func (s *Service) Payment(ctx context.Context, id int64) (models.ContractPayment, error) {
	return s.store.GetContractPayment(ctx, id)
}

// CreatePayment registers an expected or received rent payment for a contract.
func (s *Service) CreatePayment(ctx context.Context, p models.ContractPayment) (models.ContractPayment, error) {
	if p.Status == "" {
		p.Status = models.ContractPaymentPending
	}
	if err := validate.Struct(p); err != nil {
		return models.ContractPayment{}, err
	}
	if p.DueDate.IsZero() {
		return models.ContractPayment{}, validate.Errorf("due date is required")
	}
	if p.Status == models.ContractPaymentPaid && p.PaymentDate.IsZero() {
		p.PaymentDate = s.today()
	}

	c, err := s.store.GetContract(ctx, p.ContractID)
	if err != nil {
		return models.ContractPayment{}, err
	}
	if c.Status == models.ContractCancelled {
		return models.ContractPayment{}, fmt.Errorf("%w: contract %d is cancelled", ErrTerminated, c.ID)
	}

	created, err := s.store.CreateContractPayment(ctx, p)
	if err != nil {
		return models.ContractPayment{}, err
	}
	slog.Info("Rent payment created", "contract", c.ID, "payment", created.ID, "status", created.Status)
	return created, nil
}

// MarkPaid records that a rent payment was received today.
func (s *Service) MarkPaid(ctx context.Context, id int64, receipt string) (models.ContractPayment, error) {
	p, err := s.store.GetContractPayment(ctx, id)
	if err != nil {
		return models.ContractPayment{}, err
	}
	if p.Status == models.ContractPaymentPaid {
		return p, nil
	}
	if err := s.store.MarkContractPaymentPaid(ctx, id, s.today(), receipt); err != nil {
		return models.ContractPayment{}, err
	}
	return s.store.GetContractPayment(ctx, id)
}
