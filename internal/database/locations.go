package database

import (
	"context"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

// ListCountries returns the countries by name.
func (db *Manager) ListCountries(ctx context.Context) ([]models.Country, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (c models.Country, err error) {
		err = row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

// ListStates returns the states of a country by name.
func (db *Manager) ListStates(ctx context.Context, countryID int64) ([]models.State, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, country_id, name FROM states WHERE country_id = $1 ORDER BY name`, countryID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (s models.State, err error) {
		err = row.Scan(&s.ID, &s.CountryID, &s.Name)
		return s, err
	})
}

// ListCities returns the cities of a state by name.
func (db *Manager) ListCities(ctx context.Context, stateID int64) ([]models.City, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, state_id, name FROM cities WHERE state_id = $1 ORDER BY name`, stateID)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (c models.City, err error) {
		err = row.Scan(&c.ID, &c.StateID, &c.Name)
		return c, err
	})
}

// UpsertLocations inserts a country, its state and the cities of that state, keeping existing rows.
// It returns the number of cities inserted.
func (db *Manager) UpsertLocations(ctx context.Context, country, state string, cities []string) (int, error) {
	inserted := 0
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var countryID, stateID int64
		if err := tx.QueryRow(ctx, `INSERT INTO countries (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`, country).Scan(&countryID); err != nil {
			return err
		}
		if err := tx.QueryRow(ctx, `INSERT INTO states (country_id, name) VALUES ($1, $2)
			ON CONFLICT (country_id, name) DO UPDATE SET name = EXCLUDED.name RETURNING id`,
			countryID, state).Scan(&stateID); err != nil {
			return err
		}
		for _, city := range cities {
			tag, err := tx.Exec(ctx, `INSERT INTO cities (state_id, name) VALUES ($1, $2)
				ON CONFLICT (state_id, name) DO NOTHING`, stateID, city)
			if err != nil {
				return err
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	return inserted, err
}
