package database

import (
	"context"

	"github.com/inmobiliaria/backoffice/internal/models"
	"github.com/jackc/pgx/v5"
)

// PropertyFilter selects properties in listings. Zero fields match everything.
type PropertyFilter struct {
	Search   string
	TypeID   int64
	StatusID int64
	AgentID  int64
	Status   string // status name, like "Disponible"
	Limit    int
}

const propertyColumns = `p.id, p.title, p.description, p.property_type_id, t.name, p.property_status_id, s.name,
	p.street, p.number, p.neighborhood, p.locality, p.province, p.country,
	p.total_surface, p.covered_surface, p.bedrooms, p.bathrooms, p.garage, p.furnished,
	p.sale_price, p.rental_price, p.expenses, p.year_built, p.agent_id,
	COALESCE(p.owner_id, 0), COALESCE(o.first_name || ' ' || o.last_name, ''), p.created_at, p.updated_at`

const propertyFrom = ` FROM properties p
	JOIN property_types t ON t.id = p.property_type_id
	JOIN property_statuses s ON s.id = p.property_status_id
	LEFT JOIN customers o ON o.id = p.owner_id`

func scanProperty(row pgx.Row) (p models.Property, err error) {
	err = row.Scan(&p.ID, &p.Title, &p.Description, &p.TypeID, &p.TypeName, &p.StatusID, &p.StatusName,
		&p.Street, &p.Number, &p.Neighborhood, &p.Locality, &p.Province, &p.Country,
		&p.TotalSurface, &p.CoveredSurface, &p.Bedrooms, &p.Bathrooms, &p.Garage, &p.Furnished,
		&p.SalePrice, &p.RentalPrice, &p.Expenses, &p.YearBuilt, &p.AgentID,
		&p.OwnerID, &p.OwnerName, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProperties returns the properties matching f, most recent first.
func (db *Manager) ListProperties(ctx context.Context, f PropertyFilter) ([]models.Property, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := db.dbpool.Query(ctx, `SELECT `+propertyColumns+propertyFrom+`
		WHERE ($1 = '' OR p.title ILIKE $2 OR p.street ILIKE $2 OR p.neighborhood ILIKE $2 OR p.locality ILIKE $2)
		  AND ($3 = 0 OR p.property_type_id = $3)
		  AND ($4 = 0 OR p.property_status_id = $4)
		  AND ($5 = 0 OR p.agent_id = $5)
		  AND ($6 = '' OR s.name = $6)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $7`,
		f.Search, likePattern(f.Search), f.TypeID, f.StatusID, f.AgentID, f.Status, limit)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, scanProperty)
}

// GetProperty returns the property with the given id, with its features and tags.
func (db *Manager) GetProperty(ctx context.Context, id int64) (models.Property, error) {
	p, err := scanProperty(db.dbpool.QueryRow(ctx, `SELECT `+propertyColumns+propertyFrom+` WHERE p.id = $1`, id))
	if err != nil {
		return models.Property{}, translate(err)
	}
	if p.Features, err = db.listFeatures(ctx, `SELECT f.id, f.name, f.description FROM features f
		JOIN property_features pf ON pf.feature_id = f.id WHERE pf.property_id = $1 ORDER BY f.name`, id); err != nil {
		return models.Property{}, err
	}
	if p.Tags, err = db.listTags(ctx, `SELECT t.id, t.name, t.color FROM tags t
		JOIN property_tags pt ON pt.tag_id = t.id WHERE pt.property_id = $1 ORDER BY t.name`, id); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

// CreateProperty inserts a new property.
func (db *Manager) CreateProperty(ctx context.Context, p models.Property) (models.Property, error) {
	var id int64
	err := db.dbpool.QueryRow(ctx, `INSERT INTO properties
		(title, description, property_type_id, property_status_id, street, number, neighborhood, locality,
		 province, country, total_surface, covered_surface, bedrooms, bathrooms, garage, furnished,
		 sale_price, rental_price, expenses, year_built, agent_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
		 NULLIF($22, 0))
		RETURNING id`,
		p.Title, p.Description, p.TypeID, p.StatusID, p.Street, p.Number, p.Neighborhood, p.Locality,
		p.Province, p.Country, p.TotalSurface, p.CoveredSurface, p.Bedrooms, p.Bathrooms, p.Garage, p.Furnished,
		p.SalePrice, p.RentalPrice, p.Expenses, p.YearBuilt, p.AgentID, p.OwnerID).Scan(&id)
	if err != nil {
		return models.Property{}, translate(err)
	}
	return db.GetProperty(ctx, id)
}

// UpdateProperty replaces the editable fields of a property.
func (db *Manager) UpdateProperty(ctx context.Context, p models.Property) error {
	return expectOne(db.dbpool.Exec(ctx, `UPDATE properties SET
		title = $2, description = $3, property_type_id = $4, property_status_id = $5, street = $6, number = $7,
		neighborhood = $8, locality = $9, province = $10, country = $11, total_surface = $12,
		covered_surface = $13, bedrooms = $14, bathrooms = $15, garage = $16, furnished = $17,
		sale_price = $18, rental_price = $19, expenses = $20, year_built = $21, agent_id = $22,
		owner_id = NULLIF($23, 0), updated_at = NOW() WHERE id = $1`,
		p.ID, p.Title, p.Description, p.TypeID, p.StatusID, p.Street, p.Number, p.Neighborhood, p.Locality,
		p.Province, p.Country, p.TotalSurface, p.CoveredSurface, p.Bedrooms, p.Bathrooms, p.Garage, p.Furnished,
		p.SalePrice, p.RentalPrice, p.Expenses, p.YearBuilt, p.AgentID, p.OwnerID))
}

// DeleteProperty removes a property. It fails with ErrReferenced while contracts refer to it.
func (db *Manager) DeleteProperty(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id))
}

// ListPropertyTypes returns the property types by name.
func (db *Manager) ListPropertyTypes(ctx context.Context) ([]models.PropertyType, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, name, description FROM property_types ORDER BY name`)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (t models.PropertyType, err error) {
		err = row.Scan(&t.ID, &t.Name, &t.Description)
		return t, err
	})
}

// ListPropertyStatuses returns the property statuses by name.
func (db *Manager) ListPropertyStatuses(ctx context.Context) ([]models.PropertyStatus, error) {
	rows, err := db.dbpool.Query(ctx, `SELECT id, name, description FROM property_statuses ORDER BY name`)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (s models.PropertyStatus, err error) {
		err = row.Scan(&s.ID, &s.Name, &s.Description)
		return s, err
	})
}

// ListFeatures returns the property features by name.
func (db *Manager) ListFeatures(ctx context.Context) ([]models.Feature, error) {
	return db.listFeatures(ctx, `SELECT id, name, description FROM features ORDER BY name`)
}

func (db *Manager) listFeatures(ctx context.Context, query string, args ...any) ([]models.Feature, error) {
	rows, err := db.dbpool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (f models.Feature, err error) {
		err = row.Scan(&f.ID, &f.Name, &f.Description)
		return f, err
	})
}

// CreateFeature inserts a property feature. Names are unique.
func (db *Manager) CreateFeature(ctx context.Context, f models.Feature) (models.Feature, error) {
	err := db.dbpool.QueryRow(ctx, `INSERT INTO features (name, description) VALUES ($1, $2) RETURNING id`,
		f.Name, f.Description).Scan(&f.ID)
	return f, translate(err)
}

// DeleteFeature removes a feature from the catalog and from every property.
func (db *Manager) DeleteFeature(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM features WHERE id = $1`, id))
}

// ListTags returns the property tags by name.
func (db *Manager) ListTags(ctx context.Context) ([]models.Tag, error) {
	return db.listTags(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
}

func (db *Manager) listTags(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	rows, err := db.dbpool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	return collect(rows, func(row pgx.Row) (t models.Tag, err error) {
		err = row.Scan(&t.ID, &t.Name, &t.Color)
		return t, err
	})
}

// CreateTag inserts a property tag. Names are unique and the color defaults to models.DefaultTagColor.
func (db *Manager) CreateTag(ctx context.Context, t models.Tag) (models.Tag, error) {
	if t.Color == "" {
		t.Color = models.DefaultTagColor
	}
	err := db.dbpool.QueryRow(ctx, `INSERT INTO tags (name, color) VALUES ($1, $2) RETURNING id`,
		t.Name, t.Color).Scan(&t.ID)
	return t, translate(err)
}

// DeleteTag removes a tag from the catalog and from every property.
func (db *Manager) DeleteTag(ctx context.Context, id int64) error {
	return expectOne(db.dbpool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id))
}

// SetPropertyFeatures replaces the features of a property.
func (db *Manager) SetPropertyFeatures(ctx context.Context, propertyID int64, featureIDs []int64) error {
	return db.replaceLinks(ctx, "property_features", "feature_id", propertyID, featureIDs)
}

// SetPropertyTags replaces the tags of a property.
func (db *Manager) SetPropertyTags(ctx context.Context, propertyID int64, tagIDs []int64) error {
	return db.replaceLinks(ctx, "property_tags", "tag_id", propertyID, tagIDs)
}

// replaceLinks replaces the rows of a property in a link table. table and column are never user input.
func (db *Manager) replaceLinks(ctx context.Context, table, column string, propertyID int64, ids []int64) error {
	return db.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM properties WHERE id = $1)`, propertyID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE property_id = $1`, propertyID); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx, `INSERT INTO `+table+` (property_id, `+column+`)
			SELECT $1, unnest($2::bigint[]) ON CONFLICT DO NOTHING`, propertyID, ids)
		return err
	})
}
