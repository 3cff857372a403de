package database

import (
	"context"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

const agentColumns = `id, first_name, last_name, email, phone, license_number, bio, is_active, created_at, updated_at`

func scanAgent(row pgx.Row) (a models.Agent, err error) {
	err = row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.LicenseNumber, &a.Bio, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// ListAgents returns the agents whose name or email contains search, by last name.
func (db *Manager) ListAgents(ctx context.Context, search string) ([]models.Agent, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+agentColumns+` FROM agents
		WHERE $1 = '' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2
		ORDER BY last_name, first_name, id`, search, likePattern(search))
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanAgent)
}

// GetAgent returns the agent with the given id.
func (db *Manager) GetAgent(ctx context.Context, id int64) (models.Agent, error) {
	a, err := scanAgent(db.dbpool.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id))
	return a, translate(err)
}

// CreateAgent inserts a new agent and returns it with its id and timestamps.
func (db *Manager) CreateAgent(ctx context.Context, a models.Agent) (models.Agent, error) {
	created, err := scanAgent(db.dbpool.QueryRow(ctx, `INSERT INTO agents
		(first_name, last_name, email, phone, license_number, bio, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+agentColumns,
		a.FirstName, a.LastName, a.Email, a.Phone, a.LicenseNumber, a.Bio, a.IsActive))
	return created, translate(err)
}

// UpdateAgent replaces the editable fields of an agent.
func (db *Manager) UpdateAgent(ctx context.Context, a models.Agent) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE agents SET
		first_name = $2, last_name = $3, email = $4, phone = $5, license_number = $6, bio = $7, is_active = $8,
		updated_at = NOW() WHERE id = $1`,
		a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.LicenseNumber, a.Bio, a.IsActive))
}

// DeleteAgent removes an agent. It fails with ErrReferenced while properties or contracts refer to it.
func (db *Manager) DeleteAgent(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id))
}

const customerColumns = `id, first_name, last_name, email, phone, document,
	street, number, neighborhood, locality, province, country,
	birth_date, profession, notes, created_at, updated_at`

func scanCustomer(row pgx.Row) (c models.Customer, err error) {
	err = row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Document,
		&c.Street, &c.Number, &c.Neighborhood, &c.Locality, &c.Province, &c.Country,
		&c.BirthDate, &c.Profession, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCustomers returns the customers whose name, email or document contains search.
func (db *Manager) ListCustomers(ctx context.Context, search string) ([]models.Customer, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+customerColumns+` FROM customers
		WHERE $1 = '' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2 OR document ILIKE $2
		ORDER BY last_name, first_name, id`, search, likePattern(search))
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanCustomer)
}

// GetCustomer returns the customer with the given id.
func (db *Manager) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	c, err := scanCustomer(db.dbpool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	return c, translate(err)
}

// CreateCustomer inserts a new customer.
func (db *Manager) CreateCustomer(ctx context.Context, c models.Customer) (models.Customer, error) {
	created, err := scanCustomer(db.dbpool.QueryRow(ctx, `INSERT INTO customers
		(first_name, last_name, email, phone, document, street, number, neighborhood, locality, province, country,
		 birth_date, profession, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING `+customerColumns,
		c.FirstName, c.LastName, c.Email, c.Phone, c.Document, c.Street, c.Number, c.Neighborhood, c.Locality,
		c.Province, c.Country, c.BirthDate, c.Profession, c.Notes))
	return created, translate(err)
}

// UpdateCustomer replaces the editable fields of a customer.
func (db *Manager) UpdateCustomer(ctx context.Context, c models.Customer) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE customers SET
		first_name = $2, last_name = $3, email = $4, phone = $5, document = $6, street = $7, number = $8,
		neighborhood = $9, locality = $10, province = $11, country = $12, birth_date = $13, profession = $14,
		notes = $15, updated_at = NOW() WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Document, c.Street, c.Number, c.Neighborhood,
		c.Locality, c.Province, c.Country, c.BirthDate, c.Profession, c.Notes))
}

// DeleteCustomer removes a customer. It fails with ErrReferenced while contracts or invoices refer to it.
func (db *Manager) DeleteCustomer(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id))
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}
