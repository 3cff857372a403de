package admin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/inmobiliaria/backoffice/internal/common/constants"
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// Query parameters of the changelist.
const (
	searchVar = "q"
	pageVar   = "p"
)

// maxPage bounds the requested page so the offset cannot overflow.
const maxPage = math.MaxInt32 / constants.AdminPageSize

// Periods of the date filters.
const (
	PeriodAny       = "any"
	PeriodToday     = "today"
	PeriodPast7Days = "past_7_days"
	PeriodThisMonth = "this_month"
	PeriodThisYear  = "this_year"
)

var periods = []Choice{
	{Value: PeriodAny, Label: "Cualquier fecha"},
	{Value: PeriodToday, Label: "Hoy"},
	{Value: PeriodPast7Days, Label: "Últimos 7 días"},
	{Value: PeriodThisMonth, Label: "Este mes"},
	{Value: PeriodThisYear, Label: "Este año"},
}

// period returns the [from, to) range of p ending on today. It reports false for "any"
// and for unknown periods.
func period(p string, today models.Date) (from, to models.Date, ok bool) {
	tomorrow := today.AddDays(1)
	switch p {
	case PeriodToday:
		return today, tomorrow, true
	case PeriodPast7Days:
		return today.AddDays(-7), tomorrow, true
	case PeriodThisMonth:
		first := models.NewDate(today.Year(), today.Month(), 1)
		return first, first.AddMonths(1), true
	case PeriodThisYear:
		first := models.NewDate(today.Year(), time.January, 1)
		return first, models.NewDate(today.Year()+1, time.January, 1), true
	}
	return models.Date{}, models.Date{}, false
}

// listQuery is a changelist request: search terms, selected filter values and page.
// Filter values are expected to be valid options of their filter.
type listQuery struct {
	search  string
	filters map[string]string
	page    int
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// changelist builds the query of one page of the changelist of m.
func (m *Model) changelist(q listQuery, today models.Date) database.AdminQuery {
	aq := database.AdminQuery{
		Columns: []string{m.PK},
		From:    m.From,
		OrderBy: m.Ordering,
		Limit:   constants.AdminPageSize,
	}
	for _, name := range m.ListDisplay {
		f, _ := m.Field(name)
		aq.Columns = append(aq.Columns, f.Expr)
	}

	arg := func(v any) string {
		aq.Args = append(aq.Args, v)
		return "$" + strconv.Itoa(len(aq.Args))
	}

	// Every term must match at least one of the search fields.
	if len(m.SearchFields) > 0 {
		for _, term := range strings.Fields(q.search) {
			p := arg("%" + likeEscaper.Replace(term) + "%")
			ors := make([]string, 0, len(m.SearchFields))
			for _, name := range m.SearchFields {
				f, _ := m.Field(name)
				ors = append(ors, fmt.Sprintf("(%s)::text ILIKE %s", f.Expr, p))
			}
			aq.Where = append(aq.Where, "("+strings.Join(ors, " OR ")+")")
		}
	}

	for _, flt := range m.ListFilter {
		value, ok := q.filters[flt.Field]
		if !ok {
			continue
		}
		field, _ := m.Field(flt.Field)
		expr := flt.expr(field)

		switch flt.Kind {
		case FilterChoice:
			aq.Where = append(aq.Where, fmt.Sprintf("%s = %s", expr, arg(value)))
		case FilterRelated:
			id, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				continue
			}
			aq.Where = append(aq.Where, fmt.Sprintf("%s = %s", expr, arg(id)))
		case FilterDate:
			from, to, ok := period(value, today)
			if !ok {
				continue
			}
			aq.Where = append(aq.Where, fmt.Sprintf("%s >= %s::date AND %s < %s::date",
				expr, arg(from.String()), expr, arg(to.String())))
		}
	}

	if q.page > 1 {
		aq.Offset = (min(q.page, maxPage) - 1) * constants.AdminPageSize
	}
	return aq
}

// detail builds the query of the row id of m, with every displayed field.
func (m *Model) detail(id int64) (database.AdminQuery, []Field) {
	aq := database.AdminQuery{
		Columns: []string{m.PK},
		From:    m.From,
		Where:   []string{m.PK + " = $1"},
		Args:    []any{id},
		Limit:   1,
	}
	var fields []Field
	for _, f := range m.Fields {
		if f.Hidden {
			continue
		}
		aq.Columns = append(aq.Columns, f.Expr)
		fields = append(fields, f)
	}
	return aq, fields
}

// inline builds the query of the rows of inl related to the parent id.
func (inl Inline) query(parentID int64) database.AdminQuery {
	m := inl.Model
	aq := database.AdminQuery{
		Columns: []string{m.PK},
		From:    m.From,
		Where:   []string{inl.FK + " = $1"},
		Args:    []any{parentID},
		OrderBy: m.Ordering,
	}
	for _, name := range m.ListDisplay {
		f, _ := m.Field(name)
		aq.Columns = append(aq.Columns, f.Expr)
	}
	return aq
}

// format displays a raw database value of f. Empty values are shown as "-".
func format(f Field, v any) string {
	if v == nil {
		return "-"
	}
	switch f.Kind {
	case KindMoney:
		if cents, ok := v.(int64); ok {
			return models.Money(cents).Format()
		}
	case KindDate:
		if t, ok := v.(time.Time); ok {
			return models.DateOf(t).String()
		}
	case KindChoice:
		s := fmt.Sprint(v)
		for _, c := range f.Choices {
			if c.Value == s {
				return c.Label
			}
		}
		return s
	}
	s := fmt.Sprint(v)
	if s == "" {
		return "-"
	}
	return s
}
