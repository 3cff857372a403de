// Package tasks registers the periodic jobs of the back office into the scheduler application.
//
// None of them runs by default: they run when listed in the beat schedule file or when
// started by hand with the run command of the beat.
package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/notifications"
	"github.com/inmobiliaria/backoffice/internal/scheduler"
)

// Names of the registered tasks.
const (
	CheckInvoiceNotifications = "check_invoice_notifications"
	CheckContractExpirations  = "check_contract_expirations"
	CheckInvoiceOverdue       = "check_invoice_overdue"
	CheckRentIncreases        = "check_rent_increases"
	CheckInvoiceDueSoon       = "check_invoice_due_soon"
	GenerateDueInvoices       = "generate_due_invoices"
	UpdateContractStatuses    = "update_contract_statuses"
	DebugTask                 = "debug_task"
)

// Notifier runs the notification checks.
type Notifier interface {
	CheckInvoices(ctx context.Context) (notifications.InvoiceSummary, error)
	CheckContractExpirations(ctx context.Context) (notifications.ExpirationSummary, error)
	CheckInvoiceOverdue(ctx context.Context) (notifications.OverdueSummary, error)
	CheckRentIncreases(ctx context.Context) (notifications.RentIncreaseSummary, error)
	CheckInvoiceDueSoon(ctx context.Context) (notifications.DueSoonSummary, error)
}

// Biller creates the invoices of the contracts due for billing.
type Biller interface {
	GenerateDueInvoices(ctx context.Context) (accounting.BillingReport, error)
}

// StatusRefresher recomputes the status of the contracts.
type StatusRefresher interface {
	RefreshStatuses(ctx context.Context) (updated int, err error)
}

// Registry is where tasks are registered.
type Registry interface {
	Register(name string, fn scheduler.Task) error
}

// StatusReport is the result of update_contract_statuses.
type StatusReport struct {
	Updated int `json:"updated"`
}

type debugOptions struct {
	Message string `mapstructure:"message"`
}

// Register adds every task of the back office to r.
func Register(r Registry, n Notifier, b Biller, c StatusRefresher) error {
	all := []struct {
		name string
		fn   scheduler.Task
	}{
		{CheckInvoiceNotifications, withoutOptions(n.CheckInvoices)},
		{CheckContractExpirations, withoutOptions(n.CheckContractExpirations)},
		{CheckInvoiceOverdue, withoutOptions(n.CheckInvoiceOverdue)},
		{CheckRentIncreases, withoutOptions(n.CheckRentIncreases)},
		{CheckInvoiceDueSoon, withoutOptions(n.CheckInvoiceDueSoon)},
		{GenerateDueInvoices, withoutOptions(b.GenerateDueInvoices)},
		{UpdateContractStatuses, withoutOptions(func(ctx context.Context) (StatusReport, error) {
			updated, err := c.RefreshStatuses(ctx)
			return StatusReport{Updated: updated}, err
		})},
		{DebugTask, debug},
	}

	for _, t := range all {
		if err := r.Register(t.name, t.fn); err != nil {
			return fmt.Errorf("could not register task %s: %v", t.name, err)
		}
	}
	return nil
}

// withoutOptions adapts a check to a task refusing any option.
func withoutOptions[T any](run func(context.Context) (T, error)) scheduler.Task {
	return func(ctx context.Context, req scheduler.Request) (any, error) {
		if err := scheduler.Decode(req.Options, &struct{}{}); err != nil {
			return nil, err
		}
		slog.Info("Starting task", "task_name", req.Task, "task_id", req.ID)
		res, err := run(ctx)
		if err != nil {
			return nil, err
		}
		return res, nil
	}
}

func debug(_ context.Context, req scheduler.Request) (any, error) {
	var opts debugOptions
	if err := scheduler.Decode(req.Options, &opts); err != nil {
		return nil, err
	}
	slog.Info("Request", "request", req, "message", opts.Message)
	return nil, nil
}
