package database

import (
	"context"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

// ContractFilter selects contracts in listings. Zero fields match everything.
type ContractFilter struct {
	Status     models.ContractStatus
	AgentID    int64
	CustomerID int64
	PropertyID int64
	// Live restricts to active contracts whose status is active or expiring soon.
	Live bool
	// Refreshable restricts to contracts whose status is not terminal.
	Refreshable bool
	Frequency   models.Frequency
}

const contractColumns = `c.id, c.property_id, p.title, c.customer_id, cu.first_name || ' ' || cu.last_name, c.agent_id,
	c.start_date, c.end_date, c.amount, c.currency, c.frequency, c.increase_percentage::float8, c.next_increase_date,
	c.owner_discount_percentage::float8, c.terms, c.notes, c.is_active, c.status, c.created_at, c.updated_at`

const contractFrom = ` FROM contracts c
	JOIN properties p ON p.id = c.property_id
	JOIN customers cu ON cu.id = c.customer_id`

func scanContract(row pgx.Row) (c models.Contract, err error) {
	err = row.Scan(&c.ID, &c.PropertyID, &c.PropertyTitle, &c.CustomerID, &c.CustomerName, &c.AgentID,
		&c.StartDate, &c.EndDate, &c.Amount, &c.Currency, &c.Frequency, &c.IncreasePercentage, &c.NextIncreaseDate,
		&c.OwnerDiscountPercentage, &c.Terms, &c.Notes, &c.IsActive, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListContracts returns the contracts matching f, most recent start first.
func (db *Manager) ListContracts(ctx context.Context, f ContractFilter) ([]models.Contract, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT `+contractColumns+contractFrom+`
		WHERE ($1 = '' OR c.status = $1)
		  AND ($2 = 0 OR c.agent_id = $2)
		  AND ($3 = 0 OR c.customer_id = $3)
		  AND ($4 = 0 OR c.property_id = $4)
		  AND (NOT $5 OR (c.is_active AND c.status IN ('active', 'expiring_soon')))
		  AND (NOT $6 OR c.status NOT IN ('finished', 'cancelled'))
		  AND ($7 = '' OR c.frequency = $7)
		ORDER BY c.start_date DESC, c.id DESC`,
		string(f.Status), f.AgentID, f.CustomerID, f.PropertyID, f.Live, f.Refreshable, string(f.Frequency))
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanContract)
}

// GetContract returns the contract with the given id.
func (db *Manager) GetContract(ctx context.Context, id int64) (models.Contract, error) {
	c, err := scanContract(db.dbpool.QueryRow(ctx, `SELECT `+contractColumns+contractFrom+` WHERE c.id = $1`, id))
	return c, translate(err)
}

// CreateContract inserts a new contract.
func (db *Manager) CreateContract(ctx context.Context, c models.Contract) (models.Contract, error) {
	var id int64
	err := db.dbpool.QueryRow(ctx, `INSERT INTO contracts
		(property_id, customer_id, agent_id, start_date, end_date, amount, currency, frequency,
		 increase_percentage, next_increase_date, terms, notes, is_active, status, owner_discount_percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id`,
		c.PropertyID, c.CustomerID, c.AgentID, c.StartDate, c.EndDate, c.Amount, c.Currency, string(c.Frequency),
		c.IncreasePercentage, c.NextIncreaseDate, c.Terms, c.Notes, c.IsActive, string(c.Status),
		c.OwnerDiscountPercentage).Scan(&id)
	if err != nil {
		return models.Contract{}, translate(err)
	}
	return db.GetContract(ctx, id)
}

// UpdateContract replaces the editable fields of a contract, status included.
func (db *Manager) UpdateContract(ctx context.Context, c models.Contract) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE contracts SET
		property_id = $2, customer_id = $3, agent_id = $4, start_date = $5, end_date = $6, amount = $7,
		currency = $8, frequency = $9, increase_percentage = $10, next_increase_date = $11, terms = $12,
		notes = $13, is_active = $14, status = $15, owner_discount_percentage = $16, updated_at = NOW() WHERE id = $1`,
		c.ID, c.PropertyID, c.CustomerID, c.AgentID, c.StartDate, c.EndDate, c.Amount, c.Currency,
		string(c.Frequency), c.IncreasePercentage, c.NextIncreaseDate, c.Terms, c.Notes, c.IsActive, string(c.Status),
		c.OwnerDiscountPercentage))
}

// SetContractStatus updates the status of a contract.
func (db *Manager) SetContractStatus(ctx context.Context, id int64, status models.ContractStatus) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE contracts SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status)))
}

// ListContractIncreases returns the increases of a contract, most recent first.
func (db *Manager) ListContractIncreases(ctx context.Context, contractID int64) ([]models.ContractIncrease, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, contract_id, previous_amount, new_amount,
		increase_percentage::float8, effective_date, notes, created_at
		FROM contract_increases WHERE contract_id = $1 ORDER BY effective_date DESC, id DESC`, contractID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanContractIncrease)
}

func scanContractIncrease(row pgx.Row) (i models.ContractIncrease, err error) {
	err = row.Scan(&i.ID, &i.ContractID, &i.PreviousAmount, &i.NewAmount, &i.IncreasePercentage,
		&i.EffectiveDate, &i.Notes, &i.CreatedAt)
	return i, err
}

// ApplyContractIncrease records an increase and sets the contract amount and next increase date atomically.
func (db *Manager) ApplyContractIncrease(ctx context.Context, inc models.ContractIncrease, nextIncrease models.Date) (models.ContractIncrease, error) {
	var created models.ContractIncrease
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = scanContractIncrease(tx.QueryRow(ctx, `INSERT INTO contract_increases
			(contract_id, previous_amount, new_amount, increase_percentage, effective_date, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, contract_id, previous_amount, new_amount, increase_percentage::float8, effective_date, notes, created_at`,
			inc.ContractID, inc.PreviousAmount, inc.NewAmount, inc.IncreasePercentage, inc.EffectiveDate, inc.Notes))
		if err != nil {
			return err
		}
		return expectOne(tx.Exec(ctx, `UPDATE contracts SET amount = $2, next_increase_date = $3, updated_at = NOW()
			WHERE id = $1`, inc.ContractID, inc.NewAmount, nextIncrease))
	})
	return created, err
}
