package accounting

import (
	"errors"
	"fmt"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/qmuntal/stateless"
)

// Trigger is an event moving an invoice from one status to another.
type Trigger string

// Invoice status triggers.
const (
	TriggerValidate Trigger = "validate"
	TriggerSend     Trigger = "send"
	TriggerCancel   Trigger = "cancel"
	// TriggerSettle is fired when the balance of an open invoice reaches zero.
	TriggerSettle Trigger = "settle"
	// TriggerReopen is fired when a paid invoice has a balance again.
	TriggerReopen Trigger = "reopen"
)

// ErrInvalidTransition is returned when a trigger is not permitted from the current status.
var ErrInvalidTransition = errors.New("invalid invoice status transition")

func newStatusMachine(status models.InvoiceStatus) *stateless.StateMachine {
	sm := stateless.NewStateMachine(status)

	sm.Configure(models.InvoiceDraft).
		Permit(TriggerValidate, models.InvoiceValidated).
		Permit(TriggerCancel, models.InvoiceCancelled)

	sm.Configure(models.InvoiceValidated).
		Permit(TriggerSend, models.InvoiceSent).
		Permit(TriggerSettle, models.InvoicePaid).
		Permit(TriggerCancel, models.InvoiceCancelled)

	sm.Configure(models.InvoiceSent).
		Permit(TriggerSettle, models.InvoicePaid).
		Permit(TriggerCancel, models.InvoiceCancelled)

	sm.Configure(models.InvoicePaid).
		Permit(TriggerReopen, models.InvoiceSent)

	sm.Configure(models.InvoiceCancelled)

	return sm
}

// Transition returns the status reached by firing t from status.
func Transition(status models.InvoiceStatus, t Trigger) (models.InvoiceStatus, error) {
	sm := newStatusMachine(status)
	if err := sm.Fire(t); err != nil {
		return status, fmt.Errorf("%w: cannot %s a %s invoice", ErrInvalidTransition, t, status)
	}
	next, ok := sm.MustState().(models.InvoiceStatus)
	if !ok {
		return status, fmt.Errorf("%w: unexpected state %v", ErrInvalidTransition, sm.MustState())
	}
	return next, nil
}

// settlement returns the trigger matching the balance of inv, if its status should change.
func settlement(inv models.Invoice) (Trigger, bool) {
	balance := inv.Balance()
	switch {
	case inv.Status.Open() && balance <= 0 && inv.TotalAmount > 0:
		return TriggerSettle, true
	case inv.Status == models.InvoicePaid && balance > 0:
		return TriggerReopen, true
	}
	return "", false
}
