package models

import "time"

// NotificationType classifies a notification.
type NotificationType string

// Notification types.
const (
	NotifyInvoiceDueSoon         NotificationType = "invoice_due_soon"
	NotifyInvoiceDueUrgent       NotificationType = "invoice_due_urgent"
	NotifyInvoiceOverdue         NotificationType = "invoice_overdue"
	NotifyInvoiceOverdueUrgent   NotificationType = "invoice_overdue_urgent"
	NotifyInvoiceOverdueCritical NotificationType = "invoice_overdue_critical"
	NotifyInvoicePaymentReceived NotificationType = "invoice_payment_received"
	NotifyInvoiceFullyPaid       NotificationType = "invoice_fully_paid"
	NotifyContractIncrease       NotificationType = "contract_increase"
	NotifyContractExpiringSoon   NotificationType = "contract_expiring_soon"
	NotifyContractExpiringUrgent NotificationType = "contract_expiring_urgent"
	NotifyContractExpired        NotificationType = "contract_expired"
	NotifyRentIncreaseDue        NotificationType = "rent_increase_due"
	NotifyRentIncreaseOverdue    NotificationType = "rent_increase_overdue"
	NotifyGeneric                NotificationType = "generic"
)

// Kinds of objects a notification may point to.
const (
	RelatedInvoice  = "invoice"
	RelatedContract = "contract"
)

// Notification is an inbox message for an agent.
type Notification struct {
	ID          int64            `json:"id"`
	AgentID     int64            `json:"agent_id"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Type        NotificationType `json:"notification_type"`
	IsRead      bool             `json:"is_read"`
	RelatedKind string           `json:"related_kind,omitempty"`
	RelatedID   int64            `json:"related_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NotificationPreference holds which notifications an agent receives.
// Agents without stored preferences receive everything with the defaults.
type NotificationPreference struct {
	AgentID                   int64 `json:"agent_id"`
	ReceiveInvoiceDueSoon     bool  `json:"receive_invoice_due_soon"`
	ReceiveInvoiceOverdue     bool  `json:"receive_invoice_overdue"`
	ReceiveInvoicePayment     bool  `json:"receive_invoice_payment"`
	ReceiveContractExpiration bool  `json:"receive_contract_expiration"`
	ReceiveRentIncrease       bool  `json:"receive_rent_increase"`
	DaysBeforeDueDate         int   `json:"days_before_due_date" validate:"gte=0,lte=60"`
}

// DefaultNotificationPreference returns the preferences of an agent who never changed them.
func DefaultNotificationPreference(agentID int64) NotificationPreference {
	return NotificationPreference{
		AgentID:                   agentID,
		ReceiveInvoiceDueSoon:     true,
		ReceiveInvoiceOverdue:     true,
		ReceiveInvoicePayment:     true,
		ReceiveContractExpiration: true,
		ReceiveRentIncrease:       true,
		DaysBeforeDueDate:         7,
	}
}
