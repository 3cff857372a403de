package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

const (
	expirationWindowDays = 30
	urgentExpirationDays = 7

	urgentOverdueDays   = 7
	criticalOverdueDays = 30

	rentIncreaseWindowDays = 7

	dueSoonWindowDays = 7
	urgentDueDays     = 3
)

// firstDay bounds the search of overdue invoices.
var firstDay = models.NewDate(1900, time.January, 1)

// ExpirationSummary counts the contract expiration notifications created.
type ExpirationSummary struct {
	Expired int `json:"expired_notifications"`
	Urgent  int `json:"urgent_notifications"`
	Soon    int `json:"advance_notifications"`
	Total   int `json:"total_notifications"`
}

// OverdueSummary counts the overdue invoice notifications created.
type OverdueSummary struct {
	Overdue  int `json:"standard_overdue"`
	Urgent   int `json:"urgent_overdue"`
	Critical int `json:"critical_overdue"`
	Total    int `json:"total_notifications"`
}

// RentIncreaseSummary counts the rent increase notifications created.
type RentIncreaseSummary struct {
	Overdue            int `json:"overdue_increases"`
	Due                int `json:"upcoming_increases"`
	Total              int `json:"total_notifications"`
	ContractsProcessed int `json:"contracts_processed"`
}

// DueSoonSummary counts the notifications created for invoices close to their due date.
type DueSoonSummary struct {
	Urgent int `json:"urgent_due_soon"`
	Soon   int `json:"standard_due_soon"`
	Total  int `json:"total_notifications"`
}

// InvoiceSummary groups the invoice checks.
type InvoiceSummary struct {
	Overdue OverdueSummary `json:"overdue"`
	DueSoon DueSoonSummary `json:"due_soon"`
	Total   int            `json:"total_notifications"`
}

// CheckContractExpirations notifies the agents of their live contracts that expired or end within 30 days.
func (s *Service) CheckContractExpirations(ctx context.Context) (summary ExpirationSummary, err error) {
	today := s.today()
	contracts, err := s.store.ListContracts(ctx, database.ContractFilter{Live: true})
	if err != nil {
		return summary, fmt.Errorf("could not list contracts: %v", err)
	}

	prefs := s.newPreferences()
	var errs *multierror.Error
	for _, c := range contracts {
		if c.EndDate.IsZero() {
			continue
		}
		left := today.DaysUntil(c.EndDate)
		if left > expirationWindowDays {
			continue
		}

		pref, err := prefs.get(ctx, c.AgentID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("contract %d: %v", c.ID, err))
			continue
		}
		if !pref.ReceiveContractExpiration {
			continue
		}

		created, err := s.notify(ctx, expirationNotification(c, left))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("contract %d: %v", c.ID, err))
			continue
		}
		if !created {
			continue
		}
		switch {
		case left < 0:
			summary.Expired++
		case left <= urgentExpirationDays:
			summary.Urgent++
		default:
			summary.Soon++
		}
	}
	summary.Total = summary.Expired + summary.Urgent + summary.Soon

	slog.Info("Contract expiration check completed", "expired", summary.Expired, "urgent", summary.Urgent,
		"soon", summary.Soon)
	return summary, errs.ErrorOrNil()
}

// CheckInvoiceOverdue notifies the agents of the contracts whose validated or sent invoices are past
// their due date with a balance, escalating with the days late.
func (s *Service) CheckInvoiceOverdue(ctx context.Context) (summary OverdueSummary, err error) {
	today := s.today()
	invoices, err := s.store.ListOpenContractInvoices(ctx, firstDay, today.AddDays(-1))
	if err != nil {
		return summary, fmt.Errorf("could not list overdue invoices: %v", err)
	}

	prefs := s.newPreferences()
	var errs *multierror.Error
	for _, inv := range invoices {
		if inv.Balance() <= 0 {
			continue
		}
		pref, err := prefs.get(ctx, inv.AgentID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invoice %d: %v", inv.ID, err))
			continue
		}
		if !pref.ReceiveInvoiceOverdue {
			continue
		}

		late := inv.DueDate.DaysUntil(today)
		created, err := s.notify(ctx, overdueNotification(inv, late))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invoice %d: %v", inv.ID, err))
			continue
		}
		if !created {
			continue
		}
		switch {
		case late >= criticalOverdueDays:
			summary.Critical++
		case late >= urgentOverdueDays:
			summary.Urgent++
		default:
			summary.Overdue++
		}
	}
	summary.Total = summary.Overdue + summary.Urgent + summary.Critical

	slog.Info("Overdue invoice check completed", "overdue", summary.Overdue, "urgent", summary.Urgent,
		"critical", summary.Critical)
	return summary, errs.ErrorOrNil()
}

// CheckRentIncreases notifies the agents of live contracts whose rent increase is late or due within a week.
func (s *Service) CheckRentIncreases(ctx context.Context) (summary RentIncreaseSummary, err error) {
	today := s.today()
	contracts, err := s.store.ListContracts(ctx, database.ContractFilter{Live: true})
	if err != nil {
		return summary, fmt.Errorf("could not list contracts: %v", err)
	}

	prefs := s.newPreferences()
	var errs *multierror.Error
	for _, c := range contracts {
		if c.NextIncreaseDate.IsZero() {
			continue
		}
		left := today.DaysUntil(c.NextIncreaseDate)
		if left > rentIncreaseWindowDays {
			continue
		}
		summary.ContractsProcessed++

		pref, err := prefs.get(ctx, c.AgentID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("contract %d: %v", c.ID, err))
			continue
		}
		if !pref.ReceiveRentIncrease {
			continue
		}

		created, err := s.notify(ctx, rentIncreaseNotification(c, left))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("contract %d: %v", c.ID, err))
			continue
		}
		if !created {
			continue
		}
		if left < 0 {
			summary.Overdue++
		} else {
			summary.Due++
		}
	}
	summary.Total = summary.Overdue + summary.Due

	slog.Info("Rent increase check completed", "overdue", summary.Overdue, "due", summary.Due,
		"contracts", summary.ContractsProcessed)
	return summary, errs.ErrorOrNil()
}

// CheckInvoiceDueSoon notifies the agents of the contracts whose open invoices are due within a week,
// or within the days chosen in their preferences when fewer.
func (s *Service) CheckInvoiceDueSoon(ctx context.Context) (summary DueSoonSummary, err error) {
	today := s.today()
	invoices, err := s.store.ListOpenContractInvoices(ctx, today, today.AddDays(dueSoonWindowDays))
	if err != nil {
		return summary, fmt.Errorf("could not list invoices due soon: %v", err)
	}

	prefs := s.newPreferences()
	var errs *multierror.Error
	for _, inv := range invoices {
		if inv.Balance() <= 0 {
			continue
		}
		pref, err := prefs.get(ctx, inv.AgentID)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invoice %d: %v", inv.ID, err))
			continue
		}
		left := today.DaysUntil(inv.DueDate)
		if !pref.ReceiveInvoiceDueSoon || left > pref.DaysBeforeDueDate {
			continue
		}

		created, err := s.notify(ctx, dueSoonNotification(inv, left))
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("invoice %d: %v", inv.ID, err))
			continue
		}
		if !created {
			continue
		}
		if left <= urgentDueDays {
			summary.Urgent++
		} else {
			summary.Soon++
		}
	}
	summary.Total = summary.Urgent + summary.Soon

	slog.Info("Invoice due soon check completed", "urgent", summary.Urgent, "soon", summary.Soon)
	return summary, errs.ErrorOrNil()
}

// CheckInvoices runs the overdue and due soon invoice checks.
func (s *Service) CheckInvoices(ctx context.Context) (InvoiceSummary, error) {
	var summary InvoiceSummary
	var errs *multierror.Error

	overdue, err := s.CheckInvoiceOverdue(ctx)
	if err != nil {
		errs = multierror.Append(errs, err)
	}
	dueSoon, err := s.CheckInvoiceDueSoon(ctx)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	summary.Overdue, summary.DueSoon = overdue, dueSoon
	summary.Total = overdue.Total + dueSoon.Total
	return summary, errs.ErrorOrNil()
}

// PaymentReceived notifies the agent of the contract of inv that p was recorded. Invoices without
// contract have no agent to notify.
func (s *Service) PaymentReceived(ctx context.Context, inv models.Invoice, p models.Payment) error {
	agentID, err := s.store.ContractAgent(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("could not find the agent of invoice %d: %v", inv.ID, err)
	}
	if agentID == 0 {
		slog.Debug("No agent to notify of the payment", "invoice", inv.ID, "payment", p.ID)
		return nil
	}

	pref, err := s.store.GetNotificationPreference(ctx, agentID)
	if err != nil {
		return err
	}
	if !pref.ReceiveInvoicePayment {
		return nil
	}

	_, err = s.notify(ctx, paymentNotification(agentID, inv, p))
	return err
}
