// Package contracts manages rental contracts, their rent increases and rent payments.
package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/ubuntu/decorate"
)

// ExpiringSoonDays is how close to its end an active contract is considered expiring soon.
const ExpiringSoonDays = 30

// ErrTerminated is returned when a finished or cancelled contract is changed.
var ErrTerminated = errors.New("contract is terminated")

// Store is the persistence used by the contracts service.
type Store interface {
	ListContracts(ctx context.Context, f database.ContractFilter) ([]models.Contract, error)
	GetContract(ctx context.Context, id int64) (models.Contract, error)
	CreateContract(ctx context.Context, c models.Contract) (models.Contract, error)
	UpdateContract(ctx context.Context, c models.Contract) error
	SetContractStatus(ctx context.Context, id int64, status models.ContractStatus) error
	ListContractIncreases(ctx context.Context, contractID int64) ([]models.ContractIncrease, error)
	ApplyContractIncrease(ctx context.Context, inc models.ContractIncrease, nextIncrease models.Date) (models.ContractIncrease, error)

	ListPaymentMethods(ctx context.Context, activeOnly bool) ([]models.PaymentMethod, error)
	ListContractPayments(ctx context.Context, f database.ContractPaymentFilter) ([]models.ContractPayment, error)
	GetContractPayment(ctx context.Context, id int64) (models.ContractPayment, error)
	CreateContractPayment(ctx context.Context, p models.ContractPayment) (models.ContractPayment, error)
	MarkContractPaymentPaid(ctx context.Context, id int64, paidOn models.Date, receipt string) error
}

// Service implements the contract operations.
type Service struct {
	store Store
	today func() models.Date
}

type options struct {
	today func() models.Date
}

// Options represents an optional function to override Service default values.
type Options func(*options)

// WithToday overrides the current day.
func WithToday(today func() models.Date) Options {
	return func(o *options) { o.today = today }
}

// New returns a contracts service backed by store.
func New(store Store, args ...Options) *Service {
	opts := options{
		today: func() models.Date { return models.TodayIn(constants.DefaultTimeZone) },
	}
	for _, opt := range args {
		opt(&opts)
	}
	return &Service{store: store, today: opts.today}
}

// StatusOn returns the status of c on the given day. Finished and cancelled contracts keep their status.
func StatusOn(c models.Contract, today models.Date) models.ContractStatus {
	switch {
	case c.Status == models.ContractCancelled || c.Status == models.ContractFinished:
		return c.Status
	case !c.EndDate.IsZero() && today.After(c.EndDate):
		return models.ContractFinished
	case today.Before(c.StartDate):
		return models.ContractDraft
	case !c.EndDate.IsZero() && today.DaysUntil(c.EndDate) <= ExpiringSoonDays:
		return models.ContractExpiringSoon
	}
	return models.ContractActive
}

// NextIncreaseDate returns the day of the increase following one applied on from, or the zero date
// for an unknown frequency.
func NextIncreaseDate(f models.Frequency, from models.Date) models.Date {
	days := f.IncreaseInterval()
	if days == 0 || from.IsZero() {
		return models.Date{}
	}
	return from.AddDays(days)
}

// IncreasePercentage returns the change from previous to next in percent, rounded to two decimals.
func IncreasePercentage(previous, next models.Money) float64 {
	if previous <= 0 {
		return 0
	}
	p := float64(next-previous) / float64(previous) * 100
	return math.Round(p*100) / 100
}

// List returns the contracts matching f.
func (s *Service) List(ctx context.Context, f database.ContractFilter) ([]models.Contract, error) {
	return s.store.ListContracts(ctx, f)
}

// Get returns a contract.
func (s *Service) Get(ctx context.Context, id int64) (models.Contract, error) {
	return s.store.GetContract(ctx, id)
}

// Create stores a new contract with its status computed from its dates.
func (s *Service) Create(ctx context.Context, c models.Contract) (models.Contract, error) {
	if c.Currency == "" {
		c.Currency = "ARS"
	}
	if err := checkContract(c); err != nil {
		return models.Contract{}, err
	}
	if c.NextIncreaseDate.IsZero() && c.IncreasePercentage > 0 {
		c.NextIncreaseDate = NextIncreaseDate(c.Frequency, c.StartDate)
	}
	c.IsActive = true
	c.Status = StatusOn(models.Contract{StartDate: c.StartDate, EndDate: c.EndDate}, s.today())

	created, err := s.store.CreateContract(ctx, c)
	if err != nil {
		return models.Contract{}, err
	}
	slog.Info("Contract created", "contract", created.ID, "status", created.Status)
	return created, nil
}

// Update changes a contract that is not terminated. The status is recomputed from the new dates.
func (s *Service) Update(ctx context.Context, c models.Contract) (models.Contract, error) {
	cur, err := s.store.GetContract(ctx, c.ID)
	if err != nil {
		return models.Contract{}, err
	}
	if terminated(cur.Status) {
		return models.Contract{}, fmt.Errorf("%w: %s contracts cannot be edited", ErrTerminated, cur.Status)
	}
	if c.Currency == "" {
		c.Currency = cur.Currency
	}
	if err := checkContract(c); err != nil {
		return models.Contract{}, err
	}
	c.IsActive = cur.IsActive
	c.Status = StatusOn(models.Contract{StartDate: c.StartDate, EndDate: c.EndDate}, s.today())

	if err := s.store.UpdateContract(ctx, c); err != nil {
		return models.Contract{}, err
	}
	return s.store.GetContract(ctx, c.ID)
}

// Cancel terminates a contract.
func (s *Service) Cancel(ctx context.Context, id int64) (models.Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return models.Contract{}, err
	}
	if terminated(c.Status) {
		return models.Contract{}, fmt.Errorf("%w: contract %d is already %s", ErrTerminated, id, c.Status)
	}
	c.Status = models.ContractCancelled
	c.IsActive = false
	if err := s.store.UpdateContract(ctx, c); err != nil {
		return models.Contract{}, err
	}
	slog.Info("Contract cancelled", "contract", id)
	return c, nil
}

// RefreshStatus recomputes the status of a contract and stores it when it changed.
func (s *Service) RefreshStatus(ctx context.Context, id int64) (c models.Contract, changed bool, err error) {
	c, err = s.store.GetContract(ctx, id)
	if err != nil {
		return models.Contract{}, false, err
	}
	return s.refresh(ctx, c)
}

// RefreshStatuses recomputes the status of every contract that is not terminated and returns
// how many changed. Failures of single contracts do not stop the run.
func (s *Service) RefreshStatuses(ctx context.Context) (updated int, err error) {
	defer decorate.OnError(&err, "could not refresh contract statuses")

	contracts, err := s.store.ListContracts(ctx, database.ContractFilter{Refreshable: true})
	if err != nil {
		return 0, err
	}

	var errs *multierror.Error
	for _, c := range contracts {
		_, changed, err := s.refresh(ctx, c)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("contract %d: %v", c.ID, err))
			continue
		}
		if changed {
			updated++
		}
	}
	slog.Info("Contract statuses refreshed", "contracts", len(contracts), "updated", updated)
	return updated, errs.ErrorOrNil()
}

func (s *Service) refresh(ctx context.Context, c models.Contract) (models.Contract, bool, error) {
	next := StatusOn(c, s.today())
	if next == c.Status {
		return c, false, nil
	}
	if err := s.store.SetContractStatus(ctx, c.ID, next); err != nil {
		return models.Contract{}, false, err
	}
	slog.Debug("Contract status changed", "contract", c.ID, "from", c.Status, "to", next)
	c.Status = next
	return c, true, nil
}

func terminated(status models.ContractStatus) bool {
	return status == models.ContractCancelled || status == models.ContractFinished
}

func checkContract(c models.Contract) error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.StartDate.IsZero() {
		return validate.Errorf("start date is required")
	}
	if !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		return validate.Errorf("end date %s must be after the start date %s", c.EndDate, c.StartDate)
	}
	return nil
}
