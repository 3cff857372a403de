package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// BillingReport summarizes an automatic invoicing run.
type BillingReport struct {
	Date               models.Date      `json:"date"`
	ContractsProcessed int              `json:"contracts_processed"`
	Created            []models.Invoice `json:"created"`
	Errors             []string         `json:"errors,omitempty"`
}

var monthNames = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio",
	"agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// PeriodStart returns the first day of the billing period of f containing d.
func PeriodStart(f models.Frequency, d models.Date) models.Date {
	switch f {
	case models.Monthly:
		return models.NewDate(d.Year(), d.Month(), 1)
	case models.Quarterly:
		return models.NewDate(d.Year(), time.Month((int(d.Month())-1)/3*3+1), 1)
	case models.SemiAnnually:
		if d.Month() <= time.June {
			return models.NewDate(d.Year(), time.January, 1)
		}
		return models.NewDate(d.Year(), time.July, 1)
	case models.Annually:
		return models.NewDate(d.Year(), time.January, 1)
	}
	return d
}

// PeriodLabel describes the billing period of f containing d, like "trimestre 2 2025".
func PeriodLabel(f models.Frequency, d models.Date) string {
	switch f {
	case models.Monthly:
		return fmt.Sprintf("mes %s %d", monthNames[d.Month()-1], d.Year())
	case models.Quarterly:
		return fmt.Sprintf("trimestre %d %d", (int(d.Month())-1)/3+1, d.Year())
	case models.SemiAnnually:
		semester := 1
		if d.Month() > time.June {
			semester = 2
		}
		return fmt.Sprintf("semestre %d %d", semester, d.Year())
	case models.Annually:
		return fmt.Sprintf("año %d", d.Year())
	}
	return fmt.Sprintf("período %s %d", monthNames[d.Month()-1], d.Year())
}

// BillingDue reports whether contract c, last invoiced on last (unset when never), must be billed today.
// A contract is billed once per period, one full period after its last invoice or its start.
func BillingDue(c models.Contract, last, today models.Date) bool {
	months := c.Frequency.Months()
	if months == 0 {
		return false
	}
	if !last.IsZero() && !last.Before(PeriodStart(c.Frequency, today)) {
		return false
	}
	base := c.StartDate
	if !last.IsZero() {
		base = last
	}
	return !today.Before(base.AddMonths(months))
}

// GenerateDueInvoices creates the invoices of every active contract whose billing period is due.
// Failures of single contracts are reported in the returned error and do not stop the run.
func (s *Service) GenerateDueInvoices(ctx context.Context) (BillingReport, error) {
	today := s.today()
	report := BillingReport{Date: today}

	var errs *multierror.Error
	for _, f := range models.Frequencies {
		contracts, err := s.store.ListContracts(ctx, database.ContractFilter{Status: models.ContractActive, Frequency: f})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("could not list %s contracts: %v", f, err))
			continue
		}

		for _, c := range contracts {
			report.ContractsProcessed++
			inv, created, err := s.billContract(ctx, c, today)
			if err != nil {
				slog.Error("Could not bill contract", "contract", c.ID, "err", err)
				err = fmt.Errorf("contract %d: %v", c.ID, err)
				errs = multierror.Append(errs, err)
				report.Errors = append(report.Errors, err.Error())
				continue
			}
			if created {
				report.Created = append(report.Created, inv)
			}
		}
	}

	slog.Info("Automatic invoicing finished", "contracts", report.ContractsProcessed,
		"created", len(report.Created), "errors", len(report.Errors))
	return report, errs.ErrorOrNil()
}

func (s *Service) billContract(ctx context.Context, c models.Contract, today models.Date) (models.Invoice, bool, error) {
	last, err := s.store.LastContractInvoiceDate(ctx, c.ID)
	if err != nil {
		return models.Invoice{}, false, err
	}
	if !BillingDue(c, last, today) {
		return models.Invoice{}, false, nil
	}

	period := PeriodLabel(c.Frequency, today)
	inv, err := s.store.CreateInvoice(ctx, models.Invoice{
		Date:        today,
		DueDate:     today.AddDays(constants.InvoicePaymentTerm),
		CustomerID:  c.CustomerID,
		ContractID:  c.ID,
		Description: fmt.Sprintf("Factura automática - %s - %s", period, c.PropertyTitle),
		Status:      models.InvoiceValidated,
		Items: []models.InvoiceItem{{
			Concept:   fmt.Sprintf("Alquiler %s - %s", period, c.PropertyTitle),
			Quantity:  1,
			PriceUnit: c.Amount,
		}},
	})
	if err != nil {
		return models.Invoice{}, false, err
	}
	if inv, err = s.assignNumber(ctx, inv); err != nil {
		return models.Invoice{}, false, err
	}

	slog.Info("Automatic invoice created", "invoice", inv.ID, "number", inv.Number, "contract", c.ID)
	return inv, true, nil
}
