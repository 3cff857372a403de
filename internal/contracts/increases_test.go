package contracts_test

import (
	"context"
	"testing"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/contracts"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddIncrease(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status   models.ContractStatus
		previous []models.ContractIncrease
		inc      models.ContractIncrease

		wantPrevious   models.Money
		wantPercentage float64
		wantEffective  models.Date
		wantErr        error
	}{
		"Defaults to the current rent and today": {
			inc:          models.ContractIncrease{NewAmount: 112500},
			wantPrevious: 100000, wantPercentage: 12.5, wantEffective: today,
		},
		"Keeps an explicit percentage": {
			inc:          models.ContractIncrease{NewAmount: 112500, IncreasePercentage: 12, EffectiveDate: models.NewDate(2025, time.April, 1)},
			wantPrevious: 100000, wantPercentage: 12, wantEffective: models.NewDate(2025, time.April, 1),
		},
		"Follows the last increase": {
			previous:     []models.ContractIncrease{{EffectiveDate: models.NewDate(2025, time.February, 1)}},
			inc:          models.ContractIncrease{PreviousAmount: 200000, NewAmount: 210000},
			wantPrevious: 200000, wantPercentage: 5, wantEffective: today,
		},

		"Error when contract is finished": {
			status: models.ContractFinished, inc: models.ContractIncrease{NewAmount: 112500}, wantErr: contracts.ErrTerminated,
		},
		"Error when new amount is missing": {inc: models.ContractIncrease{}, wantErr: validate.ErrInvalid},
		"Error when previous amount is negative": {
			inc: models.ContractIncrease{PreviousAmount: -1, NewAmount: 112500}, wantErr: validate.ErrInvalid,
		},
		"Error when effective before contract start": {
			inc: models.ContractIncrease{NewAmount: 112500, EffectiveDate: models.NewDate(2024, time.December, 31)}, wantErr: validate.ErrInvalid,
		},
		"Error when effective after contract end": {
			inc: models.ContractIncrease{NewAmount: 112500, EffectiveDate: models.NewDate(2027, time.January, 1)}, wantErr: validate.ErrInvalid,
		},
		"Error when effective before the last increase": {
			previous: []models.ContractIncrease{{EffectiveDate: models.NewDate(2025, time.June, 1)}},
			inc:      models.ContractIncrease{NewAmount: 112500}, wantErr: validate.ErrInvalid,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := validContract()
			c.ID, c.Status = 1, models.ContractActive
			if tc.status != "" {
				c.Status = tc.status
			}
			store := newMemStore(c)
			for _, p := range tc.previous {
				p.ContractID = c.ID
				store.increases = append(store.increases, p)
			}
			tc.inc.ContractID = c.ID

			s := newService(store)
			got, err := s.AddIncrease(context.Background(), tc.inc)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "AddIncrease should fail")
				stored, _ := store.GetContract(context.Background(), c.ID)
				require.Equal(t, c.Amount, stored.Amount, "Contract amount should not change on failure")
				return
			}
			require.NoError(t, err, "AddIncrease should succeed")
			assert.Equal(t, tc.wantPrevious, got.PreviousAmount, "Previous amount should match")
			assert.InDelta(t, tc.wantPercentage, got.IncreasePercentage, 1e-9, "Percentage should match")
			assert.Equal(t, tc.wantEffective, got.EffectiveDate, "Effective date should match")

			stored, err := store.GetContract(context.Background(), c.ID)
			require.NoError(t, err, "GetContract should succeed")
			assert.Equal(t, tc.inc.NewAmount, stored.Amount, "Contract amount should be the new rent")
			assert.Equal(t, tc.wantEffective.AddDays(90), stored.NextIncreaseDate, "Next increase should be one quarter later")

			increases, err := s.Increases(context.Background(), c.ID)
			require.NoError(t, err, "Increases should succeed")
			require.Len(t, increases, len(tc.previous)+1, "Increase should be listed")
		})
	}
}
