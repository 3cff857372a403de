// Package admin provides a read-only admin site over the invoicing tables.
//
// Models are registered declaratively: the columns of their changelist, their filters,
// the fields searched by the query box and the related models shown inline on their detail
// page. Every field maps to a SQL expression of the model FROM clause.
package admin

import (
	"fmt"
	"slices"
)

// Kind tells how the values of a field are displayed.
type Kind int

// Field kinds.
const (
	KindText Kind = iota
	KindNumber
	KindMoney
	KindDate
	KindChoice
)

// Choice is a value of a choice field with its display label.
type Choice struct {
	Value string
	Label string
}

// Field is a column of a model.
type Field struct {
	Name  string
	Label string
	// Expr is the SQL expression of the field.
	Expr    string
	Kind    Kind
	Choices []Choice
	// Hidden fields are not displayed on the detail page. They serve lookups across relations.
	Hidden bool
}

// FilterKind is the kind of a list filter.
type FilterKind int

// Filter kinds.
const (
	// FilterChoice filters on the exact value of a field.
	FilterChoice FilterKind = iota
	// FilterRelated filters on the id of a related row.
	FilterRelated
	// FilterDate filters a date field on a period ending today.
	FilterDate
)

// Filter is an entry of the changelist sidebar. The query parameter named after Field selects its value.
type Filter struct {
	Field string
	Kind  FilterKind
	// Expr is compared to the selected value. It defaults to the field expression.
	Expr string
	// ChoicesSQL lists the (value, label) options when the field has no static choices.
	ChoicesSQL string
}

// Inline shows the rows of a related model on the detail page of its parent.
type Inline struct {
	Model *Model
	// FK is the SQL expression of the related model referencing the parent id.
	FK string
	// Extra is the number of empty rows shown after the related ones.
	Extra int
}

// Model is the admin registration of a table.
type Model struct {
	// Slug identifies the model in URLs.
	Slug          string
	Verbose       string
	VerbosePlural string

	// From is the FROM clause every field expression refers to.
	From string
	// PK is the SQL expression of the primary key.
	PK     string
	Fields []Field

	ListDisplay  []string
	ListFilter   []Filter
	SearchFields []string
	// Ordering is the ORDER BY clause of the changelist and inlines.
	Ordering string
	Inlines  []Inline
}

// Field returns the field called name.
func (m *Model) Field(name string) (Field, bool) {
	i := slices.IndexFunc(m.Fields, func(f Field) bool { return f.Name == name })
	if i < 0 {
		return Field{}, false
	}
	return m.Fields[i], true
}

// validate checks that every name used by the registration is a field of the model.
func (m *Model) validate() error {
	if m.Slug == "" || m.From == "" || m.PK == "" {
		return fmt.Errorf("model %q needs a slug, a FROM clause and a primary key", m.Slug)
	}
	var names []string
	names = append(names, m.ListDisplay...)
	names = append(names, m.SearchFields...)
	for _, f := range m.ListFilter {
		names = append(names, f.Field)
	}
	for _, name := range names {
		if _, ok := m.Field(name); !ok {
			return fmt.Errorf("model %s has no field %q", m.Slug, name)
		}
	}
	for _, f := range m.ListFilter {
		field, _ := m.Field(f.Field)
		switch f.Kind {
		case FilterChoice:
			if len(field.Choices) == 0 && f.ChoicesSQL == "" {
				return fmt.Errorf("choice filter %s of %s has no choices", f.Field, m.Slug)
			}
		case FilterRelated:
			if f.ChoicesSQL == "" {
				return fmt.Errorf("related filter %s of %s has no choices query", f.Field, m.Slug)
			}
		case FilterDate:
			if field.Kind != KindDate {
				return fmt.Errorf("date filter %s of %s is not on a date", f.Field, m.Slug)
			}
		}
	}
	for _, inl := range m.Inlines {
		if inl.Model == nil || inl.FK == "" {
			return fmt.Errorf("inline of %s needs a model and a foreign key", m.Slug)
		}
	}
	return nil
}

func (f Filter) expr(field Field) string {
	if f.Expr != "" {
		return f.Expr
	}
	return field.Expr
}
