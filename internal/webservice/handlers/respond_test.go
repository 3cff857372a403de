package handlers_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/inmobiliaria/backoffice/internal/accounting"
	"github.com/inmobiliaria/backoffice/internal/common/validate"
	"github.com/inmobiliaria/backoffice/internal/contracts"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/mailer"
	"github.com/inmobiliaria/backoffice/internal/webservice/handlers"
	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err error

		want int
	}{
		"Missing row":          {err: database.ErrNotFound, want: http.StatusNotFound},
		"Wrapped missing row":  {err: fmt.Errorf("could not load invoice: %w", database.ErrNotFound), want: http.StatusNotFound},
		"Invalid payload":      {err: validate.Errorf("amount is required"), want: http.StatusBadRequest},
		"Check constraint":     {err: database.ErrInvalid, want: http.StatusBadRequest},
		"No e-mail":            {err: mailer.ErrNoRecipient, want: http.StatusBadRequest},
		"Duplicated number":    {err: database.ErrConflict, want: http.StatusConflict},
		"Referenced row":       {err: database.ErrReferenced, want: http.StatusConflict},
		"Locked invoice":       {err: accounting.ErrLocked, want: http.StatusConflict},
		"Invalid transition":   {err: accounting.ErrInvalidTransition, want: http.StatusConflict},
		"Closed contract":      {err: contracts.ErrTerminated, want: http.StatusConflict},
		"E-mail disabled":      {err: mailer.ErrDisabled, want: http.StatusConflict},
		"Receipt already sent": {err: accounting.ErrReceiptSent, want: http.StatusConflict},
		"Anything else":        {err: errors.New("connection refused"), want: http.StatusInternalServerError},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, handlers.StatusOf(tc.err), "unexpected status")
		})
	}
}
