package admin

import (
	"github.com/inmobiliaria/backoffice/internal/database"
	"github.com/inmobiliaria/backoffice/internal/models"
)

// ChangelistQuery exposes the query of a changelist page to tests.
func ChangelistQuery(m *Model, search string, filters map[string]string, page int, today models.Date) database.AdminQuery {
	return m.changelist(listQuery{search: search, filters: filters, page: page}, today)
}

// DetailQuery exposes the query of a detail page to tests.
func DetailQuery(m *Model, id int64) database.AdminQuery {
	q, _ := m.detail(id)
	return q
}

// Format exposes the display of values to tests.
var Format = format
