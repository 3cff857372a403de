package admin_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/admin"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterModel(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		edit func(m *admin.Model)

		wantErr bool
	}{
		"Valid model": {},

		"Error when the slug is missing": {edit: func(m *admin.Model) { m.Slug = "" }, wantErr: true},
		"Error when a displayed field is unknown": {
			edit:    func(m *admin.Model) { m.ListDisplay = append(m.ListDisplay, "balance") },
			wantErr: true,
		},
		"Error when a searched field is unknown": {
			edit:    func(m *admin.Model) { m.SearchFields = []string{"partner__email"} },
			wantErr: true,
		},
		"Error when a date filter is not on a date": {
			edit:    func(m *admin.Model) { m.ListFilter = []admin.Filter{{Field: "name", Kind: admin.FilterDate}} },
			wantErr: true,
		},
		"Error when a related filter has no choices query": {
			edit:    func(m *admin.Model) { m.ListFilter = []admin.Filter{{Field: "partner", Kind: admin.FilterRelated}} },
			wantErr: true,
		},
		"Error when a choice filter has no choices": {
			edit:    func(m *admin.Model) { m.ListFilter = []admin.Filter{{Field: "name", Kind: admin.FilterChoice}} },
			wantErr: true,
		},
		"Error when an inline has no foreign key": {
			edit:    func(m *admin.Model) { m.Inlines[0].FK = "" },
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := admin.InvoiceAdmin()
			if tc.edit != nil {
				tc.edit(m)
			}

			err := admin.New(&fakeStore{}).RegisterModel(m)
			if tc.wantErr {
				require.Error(t, err, "RegisterModel should fail")
				return
			}
			require.NoError(t, err, "RegisterModel should not fail")
		})
	}
}

func TestRegisterInvoicing(t *testing.T) {
	t.Parallel()

	s := admin.New(&fakeStore{})
	require.NoError(t, admin.RegisterInvoicing(s), "RegisterInvoicing should not fail")

	var slugs []string
	for _, m := range s.Models() {
		slugs = append(slugs, m.Slug)
	}
	assert.Equal(t, []string{"invoice", "invoiceitem", "payment"}, slugs, "unexpected registered models")
	assert.Equal(t, "admin", s.Name(), "unexpected module name")

	require.Error(t, admin.RegisterInvoicing(s), "registering the same models twice should fail")
}

func TestSite(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		path  string
		store *fakeStore

		wantCode     int
		wantContains []string
		wantMissing  []string
		wantQuery    *database.AdminQuery
	}{
		"Index lists the models": {
			path:         "/admin/",
			wantCode:     http.StatusOK,
			wantContains: []string{`href="invoice/"`, "Facturas", "Ítems de factura", "Pagos"},
		},
		"Invoice changelist": {
			path:     "/admin/invoice/",
			wantCode: http.StatusOK,
			wantContains: []string{
				"<th>Número</th>", "<th>Total</th>",
				`<a href="1/">INV-2025-001</a>`, "Ana Pérez", "$1,500.00", "Pagada", "2025-03-01",
				"Por Cliente", `href="?partner=3"`, "Este mes", "Borrador",
				"Página 1 de 1",
			},
		},
		"Invoice changelist with a filter and a search": {
			path:         "/admin/invoice/?state=paid&q=perez",
			wantCode:     http.StatusOK,
			wantContains: []string{`<li class="selected"><a href="?q=perez&amp;state=paid">Pagada</a>`},
			wantQuery: &database.AdminQuery{
				Where: []string{
					"((i.number)::text ILIKE $1 OR (c.first_name || ' ' || c.last_name)::text ILIKE $1)",
					"i.status = $2",
				},
				Args: []any{"%perez%", "paid"},
			},
		},
		"Unknown filter values are ignored": {
			path:      "/admin/invoice/?state=archived&partner=99&invoice_date=any&p=x",
			wantCode:  http.StatusOK,
			wantQuery: &database.AdminQuery{},
		},
		"Payment method options come from the database": {
			path:         "/admin/payment/?method=Efectivo",
			wantCode:     http.StatusOK,
			wantContains: []string{"Por Método", `<li class="selected"><a href="?method=Efectivo">Efectivo</a>`, "Transferencia"},
			wantQuery: &database.AdminQuery{
				Where: []string{"p.method = $1"},
				Args:  []any{"Efectivo"},
			},
		},
		"Pagination links": {
			path:         "/admin/invoiceitem/?p=2",
			store:        &fakeStore{total: 250},
			wantCode:     http.StatusOK,
			wantContains: []string{"Página 2 de 3", `href="?p=1"`, `href="?p=3"`},
			wantQuery:    &database.AdminQuery{Offset: 100},
		},
		"Page past the end shows the last page": {
			path:         "/admin/invoiceitem/?p=99999999999999",
			store:        &fakeStore{total: 250},
			wantCode:     http.StatusOK,
			wantContains: []string{"Página 3 de 3", `href="?p=2"`},
			wantQuery:    &database.AdminQuery{Offset: 200},
		},
		"Invoice detail with inlines": {
			path:     "/admin/invoice/1/",
			wantCode: http.StatusOK,
			wantContains: []string{
				"Factura 1", "Descripción", "Alquiler marzo",
				"Ítems de factura", "<td>Alquiler</td>", "<td>$1,500.00</td>",
				`<tr class="empty">`, "Pagos",
			},
			wantMissing: []string{"Nombre del cliente"},
		},

		// Error cases
		"Unknown model": {path: "/admin/contract/", wantCode: http.StatusNotFound},
		"Unknown model detail": {
			path:     "/admin/contract/1/",
			wantCode: http.StatusNotFound,
		},
		"Missing row": {
			path:     "/admin/invoice/9/",
			store:    &fakeStore{empty: true},
			wantCode: http.StatusNotFound,
		},
		"Store failure on the changelist": {
			path:     "/admin/invoice/",
			store:    &fakeStore{rowsErr: errors.New("requested rows error")},
			wantCode: http.StatusInternalServerError,
		},
		"Store failure on the filter options": {
			path:     "/admin/invoice/",
			store:    &fakeStore{choicesErr: errors.New("requested choices error")},
			wantCode: http.StatusInternalServerError,
		},
		"Store failure on the detail": {
			path:     "/admin/invoice/1/",
			store:    &fakeStore{rowsErr: errors.New("requested rows error")},
			wantCode: http.StatusInternalServerError,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if tc.store == nil {
				tc.store = &fakeStore{}
			}
			s := admin.New(tc.store, admin.WithToday(func() models.Date { return models.NewDate(2025, time.March, 15) }))
			require.NoError(t, admin.RegisterInvoicing(s), "Setup: RegisterInvoicing should not fail")

			r := mux.NewRouter()
			s.Register(r.PathPrefix("/admin").Subrouter())

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			body, err := io.ReadAll(rec.Body)
			require.NoError(t, err, "Setup: reading the body should not fail")
			require.Equal(t, tc.wantCode, rec.Code, "unexpected status code, body: %s", body)
			if tc.wantCode != http.StatusOK {
				return
			}
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"), "pages should be HTML")
			for _, want := range tc.wantContains {
				assert.Contains(t, string(body), want, "page should contain %q", want)
			}
			for _, missing := range tc.wantMissing {
				assert.NotContains(t, string(body), missing, "page should not contain %q", missing)
			}

			if tc.wantQuery != nil {
				got := tc.store.lastList()
				assert.Equal(t, tc.wantQuery.Where, got.Where, "unexpected conditions")
				assert.Equal(t, tc.wantQuery.Args, got.Args, "unexpected arguments")
				assert.Equal(t, tc.wantQuery.Offset, got.Offset, "unexpected offset")
			}
		})
	}
}

// fakeStore answers the admin queries with a fixed invoice, item and payment.
type fakeStore struct {
	total      int
	empty      bool
	rowsErr    error
	choicesErr error

	mu      sync.Mutex
	queries []database.AdminQuery
}

func (s *fakeStore) AdminRows(_ context.Context, q database.AdminQuery) ([][]any, int, error) {
	s.mu.Lock()
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if s.rowsErr != nil {
		return nil, 0, s.rowsErr
	}
	if s.empty {
		return nil, 0, nil
	}

	march := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	var row []any
	switch {
	case strings.HasPrefix(q.From, "invoices") && q.Limit == 1:
		// Detail: id, name, partner, dates, state, total, contract, description.
		row = []any{int64(1), "INV-2025-001", "Ana Pérez", march, march.AddDate(0, 0, 30), "paid", int64(150000), int64(4), "Alquiler marzo"}
	case strings.HasPrefix(q.From, "invoices"):
		row = []any{int64(1), "INV-2025-001", "Ana Pérez", march, march.AddDate(0, 0, 30), "paid", int64(150000)}
	case strings.HasPrefix(q.From, "invoice_items"):
		row = []any{int64(10), "INV-2025-001", "Alquiler", int64(1), int64(150000), int64(150000)}
	case strings.HasPrefix(q.From, "invoice_payments"):
		row = []any{int64(20), "INV-2025-001", march, int64(150000), "Efectivo"}
	}

	total := s.total
	if total == 0 {
		total = 1
	}
	return [][]any{row}, total, nil
}

func (s *fakeStore) AdminChoices(_ context.Context, sql string) ([]database.AdminChoice, error) {
	if s.choicesErr != nil {
		return nil, s.choicesErr
	}
	if strings.Contains(sql, "customers") {
		return []database.AdminChoice{{Value: "3", Label: "Ana Pérez"}}, nil
	}
	return []database.AdminChoice{{Value: "Efectivo", Label: "Efectivo"}, {Value: "Transferencia", Label: "Transferencia"}}, nil
}

// lastList returns the last changelist query.
func (s *fakeStore) lastList() database.AdminQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}
