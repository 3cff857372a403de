package database

import (
	"context"
	"fmt"
	"strings"
)

// AdminQuery is a read-only query of the admin site. Conditions use $n placeholders matching Args.
type AdminQuery struct {
	Columns []string
	From    string
	Where   []string
	Args    []any
	OrderBy string
	Limit   int
	Offset  int
}

// SQL returns the select statement of q and the statement counting all its rows.
func (q AdminQuery) SQL() (selectSQL, countSQL string) {
	var where string
	if len(q.Where) > 0 {
		where = " WHERE " + strings.Join(q.Where, " AND ")
	}

	selectSQL = "SELECT " + strings.Join(q.Columns, ", ") + " FROM " + q.From + where
	if q.OrderBy != "" {
		selectSQL += " ORDER BY " + q.OrderBy
	}
	if q.Limit > 0 {
		selectSQL += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		selectSQL += fmt.Sprintf(" OFFSET %d", q.Offset)
	}
	countSQL = "SELECT COUNT(*) FROM " + q.From + where
	return selectSQL, countSQL
}

// AdminRows runs q and returns the raw values of each row with the total number of matching rows.
func (db *Manager) AdminRows(ctx context.Context, q AdminQuery) (rows [][]any, total int, err error) {
	selectSQL, countSQL := q.SQL()

	if err := db.dbpool.QueryRow(ctx, countSQL, q.Args...).Scan(&total); err != nil {
		return nil, 0, translate(err)
	}

	r, err := db.dbpool.Query(ctx, selectSQL, q.Args...)
	if err != nil {
		return nil, 0, translate(err)
	}
	defer r.Close()

	for r.Next() {
		values, err := r.Values()
		if err != nil {
			return nil, 0, translate(err)
		}
		rows = append(rows, values)
	}
	if err := r.Err(); err != nil {
		return nil, 0, translate(err)
	}
	return rows, total, nil
}

// AdminChoice is an option of a list filter.
type AdminChoice struct {
	Value string
	Label string
}

// AdminChoices runs a two column (value, label) query and returns its rows. Both columns must be text.
func (db *Manager) AdminChoices(ctx context.Context, sql string) ([]AdminChoice, error) {
	r, err := db.dbpool.Query(ctx, sql)
	if err != nil {
		return nil, translate(err)
	}
	defer r.Close()

	var out []AdminChoice
	for r.Next() {
		var c AdminChoice
		if err := r.Scan(&c.Value, &c.Label); err != nil {
			return nil, translate(err)
		}
		out = append(out, c)
	}
	return out, translate(r.Err())
}
