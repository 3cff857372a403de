package accounting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// numberAttempts bounds the retries when another process took the same number.
const numberAttempts = 3

// FormatNumber returns the invoice number of a sequence in a year, like INV-2025-007.
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("INV-%04d-%03d", year, seq)
}

// Assignment is a number given to an invoice.
type Assignment struct {
	InvoiceID int64  `json:"invoice_id"`
	Number    string `json:"number"`
}

// AssignNumbers gives a number of the given year to every invoice without one, oldest first.
// The current year is used when year is 0. With dryRun, the numbers are computed but not stored.
func (s *Service) AssignNumbers(ctx context.Context, year int, dryRun bool) ([]Assignment, error) {
	if year == 0 {
		year = s.today().Year()
	}

	invoices, err := s.store.InvoicesWithoutNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list invoices without number: %v", err)
	}
	if len(invoices) == 0 {
		return nil, nil
	}

	seq, err := s.store.MaxInvoiceSequence(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("could not read the last invoice number of %d: %v", year, err)
	}

	assigned := make([]Assignment, 0, len(invoices))
	for _, inv := range invoices {
		seq++
		a := Assignment{InvoiceID: inv.ID, Number: FormatNumber(year, seq)}
		if !dryRun {
			if err := s.store.SetInvoiceNumber(ctx, inv.ID, a.Number); err != nil {
				return assigned, fmt.Errorf("could not number invoice %d: %w", inv.ID, err)
			}
		}
		slog.Info("Invoice number assigned", "invoice", inv.ID, "number", a.Number, "dry_run", dryRun)
		assigned = append(assigned, a)
	}
	return assigned, nil
}

// assignNumber gives inv the next number of the year of its date.
func (s *Service) assignNumber(ctx context.Context, inv models.Invoice) (models.Invoice, error) {
	year := inv.Date.Year()
	for range numberAttempts {
		seq, err := s.store.MaxInvoiceSequence(ctx, year)
		if err != nil {
			return models.Invoice{}, err
		}
		number := FormatNumber(year, seq+1)
		err = s.store.SetInvoiceNumber(ctx, inv.ID, number)
		if errors.Is(err, database.ErrConflict) {
			slog.Debug("Invoice number already taken, retrying", "number", number)
			continue
		}
		if err != nil {
			return models.Invoice{}, err
		}
		inv.Number = number
		slog.Info("Invoice number assigned", "invoice", inv.ID, "number", number)
		return inv, nil
	}
	return models.Invoice{}, fmt.Errorf("could not assign a number to invoice %d: %w", inv.ID, database.ErrConflict)
}
