package admin

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/inmobiliaria/backoffice/internal/webservice/middleware"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// Store runs the queries of the admin site.
type Store interface {
	AdminRows(ctx context.Context, q database.AdminQuery) (rows [][]any, total int, err error)
	AdminChoices(ctx context.Context, sql string) ([]database.AdminChoice, error)
}

// Site is the admin web module. It serves the registered models.
type Site struct {
	store  Store
	models []*Model
	today  func() models.Date
}

type options struct {
	today func() models.Date
}

// Options represents an optional function to override Site default values.
type Options func(*options)

// WithToday sets the clock of the date filters.
func WithToday(today func() models.Date) Options {
	return func(o *options) {
		o.today = today
	}
}

// New creates an admin site without any model.
func New(store Store, args ...Options) *Site {
	opts := options{
		today: func() models.Date { return models.TodayIn(constants.DefaultTimeZone) },
	}
	for _, opt := range args {
		opt(&opts)
	}
	return &Site{store: store, today: opts.today}
}

// RegisterModel adds m to the site. Slugs must be unique.
func (s *Site) RegisterModel(m *Model) error {
	if err := m.validate(); err != nil {
		return fmt.Errorf("invalid admin model: %v", err)
	}
	if _, ok := s.model(m.Slug); ok {
		return fmt.Errorf("model %s is already registered", m.Slug)
	}
	s.models = append(s.models, m)
	return nil
}

// Models returns the registered models in registration order.
func (s *Site) Models() []*Model {
	return slices.Clone(s.models)
}

// Name identifies the admin site in the route table.
func (*Site) Name() string { return "admin" }

// Register adds the admin pages to r.
func (s *Site) Register(r *mux.Router) {
	r.HandleFunc("/", s.index).Methods(http.MethodGet)
	r.HandleFunc("/{model}/", s.changelist).Methods(http.MethodGet)
	r.HandleFunc("/{model}/{id:[0-9]+}/", s.detail).Methods(http.MethodGet)
}

func (s *Site) model(slug string) (*Model, bool) {
	i := slices.IndexFunc(s.models, func(m *Model) bool { return m.Slug == slug })
	if i < 0 {
		return nil, false
	}
	return s.models[i], true
}

type indexPage struct {
	Models []*Model
}

func (s *Site) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", indexPage{Models: s.models})
}

type filterOption struct {
	Label    string
	URL      string
	Selected bool
}

type filterView struct {
	Label   string
	Options []filterOption
}

type listRow struct {
	URL   string
	Cells []string
}

type changelistPage struct {
	Model   *Model
	Columns []string
	Rows    []listRow
	Filters []filterView
	Search  string
	Total   int
	Page    int
	Pages   int
	PrevURL string
	NextURL string
}

func (s *Site) changelist(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(mux.Vars(r)["model"])
	if !ok {
		http.NotFound(w, r)
		return
	}

	params := r.URL.Query()
	q := listQuery{
		search:  params.Get(searchVar),
		filters: make(map[string]string),
		page:    1,
	}
	if p, err := strconv.Atoi(params.Get(pageVar)); err == nil && p > 1 {
		q.page = p
	}

	page := changelistPage{Model: m, Search: q.search, Page: q.page}
	for _, flt := range m.ListFilter {
		field, _ := m.Field(flt.Field)
		opts, err := s.filterOptions(r.Context(), flt, field)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		// Values that are not an option of the filter are ignored.
		selected := params.Get(flt.Field)
		if !slices.ContainsFunc(opts, func(c Choice) bool { return c.Value == selected }) ||
			(flt.Kind == FilterDate && selected == PeriodAny) {
			selected = ""
		}
		if selected != "" {
			q.filters[flt.Field] = selected
		}

		view := filterView{Label: field.Label}
		view.Options = append(view.Options, filterOption{
			Label:    "Todos",
			URL:      withParam(params, flt.Field, ""),
			Selected: selected == "" && flt.Kind != FilterDate,
		})
		for _, c := range opts {
			isAny := c.Value == PeriodAny && flt.Kind == FilterDate
			if isAny {
				// "any" replaces "all" for date filters.
				view.Options[0].Label = c.Label
				view.Options[0].Selected = selected == ""
				continue
			}
			view.Options = append(view.Options, filterOption{
				Label:    c.Label,
				URL:      withParam(params, flt.Field, c.Value),
				Selected: selected == c.Value,
			})
		}
		page.Filters = append(page.Filters, view)
	}

	rows, total, err := s.store.AdminRows(r.Context(), m.changelist(q, s.today()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	// Pages past the end show the last one.
	if last := pageCount(total); q.page > last {
		q.page, page.Page = last, last
		if rows, total, err = s.store.AdminRows(r.Context(), m.changelist(q, s.today())); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	for _, name := range m.ListDisplay {
		f, _ := m.Field(name)
		page.Columns = append(page.Columns, f.Label)
	}
	for _, row := range rows {
		page.Rows = append(page.Rows, listRow{
			URL:   fmt.Sprintf("%v/", row[0]),
			Cells: formatRow(m, m.ListDisplay, row[1:]),
		})
	}

	page.Total = total
	page.Pages = pageCount(total)
	if page.Page > 1 {
		page.PrevURL = withParam(params, pageVar, strconv.Itoa(page.Page-1))
	}
	if page.Page < page.Pages {
		page.NextURL = withParam(params, pageVar, strconv.Itoa(page.Page+1))
	}

	s.render(w, r, "changelist.html", page)
}

// pageCount returns the number of changelist pages of total rows, at least one.
func pageCount(total int) int {
	return max(1, (total+constants.AdminPageSize-1)/constants.AdminPageSize)
}

// filterOptions returns the options of flt, from the field choices or from the database.
func (s *Site) filterOptions(ctx context.Context, flt Filter, field Field) ([]Choice, error) {
	if flt.Kind == FilterDate {
		return periods, nil
	}
	if flt.ChoicesSQL == "" {
		return field.Choices, nil
	}
	rows, err := s.store.AdminChoices(ctx, flt.ChoicesSQL)
	if err != nil {
		return nil, fmt.Errorf("could not list options of filter %s: %w", flt.Field, err)
	}
	opts := make([]Choice, 0, len(rows))
	for _, c := range rows {
		label := c.Label
		// Labels of distinct values fall back to the field choices.
		if i := slices.IndexFunc(field.Choices, func(fc Choice) bool { return fc.Value == c.Value }); i >= 0 {
			label = field.Choices[i].Label
		}
		opts = append(opts, Choice{Value: c.Value, Label: label})
	}
	return opts, nil
}

type detailField struct {
	Label string
	Value string
}

type inlineView struct {
	Title   string
	Columns []string
	Rows    [][]string
	Extra   []struct{}
}

type detailPage struct {
	Model   *Model
	ID      int64
	Title   string
	Fields  []detailField
	Inlines []inlineView
}

func (s *Site) detail(w http.ResponseWriter, r *http.Request) {
	m, ok := s.model(mux.Vars(r)["model"])
	if !ok {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	aq, fields := m.detail(id)
	rows, _, err := s.store.AdminRows(r.Context(), aq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(rows) == 0 {
		http.NotFound(w, r)
		return
	}

	page := detailPage{Model: m, ID: id, Title: fmt.Sprintf("%s %d", m.Verbose, id)}
	for i, f := range fields {
		page.Fields = append(page.Fields, detailField{Label: f.Label, Value: format(f, rows[0][i+1])})
	}

	for _, inl := range m.Inlines {
		related, _, err := s.store.AdminRows(r.Context(), inl.query(id))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		view := inlineView{Title: inl.Model.VerbosePlural, Extra: make([]struct{}, inl.Extra)}
		for _, name := range inl.Model.ListDisplay {
			f, _ := inl.Model.Field(name)
			view.Columns = append(view.Columns, f.Label)
		}
		for _, row := range related {
			view.Rows = append(view.Rows, formatRow(inl.Model, inl.Model.ListDisplay, row[1:]))
		}
		page.Inlines = append(page.Inlines, view)
	}

	s.render(w, r, "detail.html", page)
}

func formatRow(m *Model, names []string, values []any) []string {
	cells := make([]string, len(names))
	for i, name := range names {
		f, _ := m.Field(name)
		cells[i] = format(f, values[i])
	}
	return cells
}

// withParam returns the query string of params with key set to value, or removed when empty.
// Changing anything but the page goes back to the first page.
func withParam(params url.Values, key, value string) string {
	v := url.Values{}
	for k, vals := range params {
		v[k] = slices.Clone(vals)
	}
	if key != pageVar {
		v.Del(pageVar)
	}
	if value == "" {
		v.Del(key)
	} else {
		v.Set(key, value)
	}
	return "?" + v.Encode()
}

func (s *Site) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.fail(w, r, fmt.Errorf("could not render %s: %v", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, database.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	slog.Error("Admin query failed", "req_id", middleware.RequestID(r.Context()), "path", r.URL.Path, "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
