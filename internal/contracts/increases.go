package contracts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// Increases returns the rent increases of a contract, most recent first.
func (s *Service) Increases(ctx context.Context, contractID int64) ([]models.ContractIncrease, error) {
	if _, err := s.store.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	return s.store.ListContractIncreases(ctx, contractID)
}

// AddIncrease applies a rent increase to a contract. The previous amount defaults to the current rent,
// the effective date to today and the percentage is computed from both amounts when not given.
// The contract amount and its next increase date are updated with it.
func (s *Service) AddIncrease(ctx context.Context, inc models.ContractIncrease) (models.ContractIncrease, error) {
	c, err := s.store.GetContract(ctx, inc.ContractID)
	if err != nil {
		return models.ContractIncrease{}, err
	}
	if terminated(c.Status) {
		return models.ContractIncrease{}, fmt.Errorf("%w: %s contracts cannot be increased", ErrTerminated, c.Status)
	}

	if inc.PreviousAmount == 0 {
		inc.PreviousAmount = c.Amount
	}
	if inc.EffectiveDate.IsZero() {
		inc.EffectiveDate = s.today()
	}
	if err := validate.Struct(inc); err != nil {
		return models.ContractIncrease{}, err
	}
	if inc.PreviousAmount <= 0 {
		return models.ContractIncrease{}, validate.Errorf("previous amount must be positive")
	}
	if inc.EffectiveDate.Before(c.StartDate) {
		return models.ContractIncrease{}, validate.Errorf("effective date %s is before the contract start %s", inc.EffectiveDate, c.StartDate)
	}
	if !c.EndDate.IsZero() && inc.EffectiveDate.After(c.EndDate) {
		return models.ContractIncrease{}, validate.Errorf("effective date %s is after the contract end %s", inc.EffectiveDate, c.EndDate)
	}

	previous, err := s.store.ListContractIncreases(ctx, c.ID)
	if err != nil {
		return models.ContractIncrease{}, err
	}
	if len(previous) > 0 && inc.EffectiveDate.Before(previous[0].EffectiveDate) {
		return models.ContractIncrease{}, validate.Errorf("effective date %s is before the last increase on %s",
			inc.EffectiveDate, previous[0].EffectiveDate)
	}

	if inc.IncreasePercentage == 0 {
		inc.IncreasePercentage = IncreasePercentage(inc.PreviousAmount, inc.NewAmount)
	}

	created, err := s.store.ApplyContractIncrease(ctx, inc, NextIncreaseDate(c.Frequency, inc.EffectiveDate))
	if err != nil {
		return models.ContractIncrease{}, err
	}
	slog.Info("Contract increase applied", "contract", c.ID, "from", inc.PreviousAmount, "to", inc.NewAmount,
		"percentage", inc.IncreasePercentage)
	return created, nil
}
