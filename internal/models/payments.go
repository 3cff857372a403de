package models

import "time"

// PaymentMethod is a way of paying, like cash or bank transfer.
type PaymentMethod struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// ContractPaymentStatus is the state of a rent payment.
type ContractPaymentStatus string

// Contract payment statuses.
const (
	ContractPaymentPending ContractPaymentStatus = "pending"
	ContractPaymentPaid    ContractPaymentStatus = "paid"
	ContractPaymentOverdue ContractPaymentStatus = "overdue"
	ContractPaymentPartial ContractPaymentStatus = "partial"
)

// ContractPayment is a rent payment expected or received for a contract.
type ContractPayment struct {
	ID              int64                 `json:"id"`
	ContractID      int64                 `json:"contract_id" validate:"required"`
	PaymentMethodID int64                 `json:"payment_method_id" validate:"required"`
	MethodName      string                `json:"payment_method,omitempty"`
	Amount          Money                 `json:"amount" validate:"gt=0"`
	DueDate         Date                  `json:"due_date"`
	PaymentDate     Date                  `json:"payment_date"`
	Status          ContractPaymentStatus `json:"status" validate:"omitempty,oneof=pending paid overdue partial"`
	ReceiptNumber   string                `json:"receipt_number,omitempty" validate:"max=50"`
	Notes           string                `json:"notes,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// IsOverdue reports whether the payment is still pending after its due date.
func (p ContractPayment) IsOverdue(today Date) bool {
	return p.Status == ContractPaymentPending && p.DueDate.Before(today)
}
