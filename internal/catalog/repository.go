// Package catalog serves the vehicle brands and models that parts are listed under.
package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/database"
)

const foreignKeyViolation = "23503"

// Repository handles brand and vehicle model persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates a catalog repository.
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

// ListBrands returns brands that are not soft-deleted, by name.
func (r *Repository) ListBrands(ctx context.Context) ([]models.Brand, error) {
	rows, err := r.db.Query(ctx, `SELECT id, brand, created_at, updated_at FROM brands
		WHERE soft_delete = 0 ORDER BY brand ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Brand, 0)
	for rows.Next() {
		var b models.Brand
		if err := rows.Scan(&b.ID, &b.Brand, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// GetBrand returns a live brand or apperr.ErrNotFound.
func (r *Repository) GetBrand(ctx context.Context, id int64) (*models.Brand, error) {
	var b models.Brand
	err := r.db.QueryRow(ctx, `SELECT id, brand, created_at, updated_at FROM brands
		WHERE id = $1 AND soft_delete = 0`, id).Scan(&b.ID, &b.Brand, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Brand not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBrand inserts a brand.
func (r *Repository) CreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	b := models.Brand{Brand: name}
	err := r.db.QueryRow(ctx, `INSERT INTO brands (brand) VALUES ($1) RETURNING id, created_at, updated_at`, name).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBrand renames a live brand.
func (r *Repository) UpdateBrand(ctx context.Context, id int64, name string) (*models.Brand, error) {
	b := models.Brand{ID: id, Brand: name}
	err := r.db.QueryRow(ctx, `UPDATE brands SET brand = $2, updated_at = NOW()
		WHERE id = $1 AND soft_delete = 0
		RETURNING created_at, updated_at`, id, name).Scan(&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Brand not found")
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SoftDeleteBrand marks a brand deleted. Its models stay but lose the brand name in listings.
func (r *Repository) SoftDeleteBrand(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE brands SET soft_delete = 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Brand not found")
	}
	return nil
}

const modelSelect = `SELECT m.id, m.model, m.brand_id, COALESCE(b.brand, ''), m.created_at, m.updated_at
	FROM models m
	LEFT JOIN brands b ON b.id = m.brand_id AND b.soft_delete = 0`

func scanModel(row pgx.Row) (*models.VehicleModel, error) {
	var m models.VehicleModel
	if err := row.Scan(&m.ID, &m.Model, &m.BrandID, &m.BrandName, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModels returns every vehicle model, newest first, with its brand name.
func (r *Repository) ListModels(ctx context.Context) ([]models.VehicleModel, error) {
	rows, err := r.db.Query(ctx, modelSelect+` ORDER BY m.created_at DESC, m.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.VehicleModel, 0)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// GetModel returns a vehicle model or apperr.ErrNotFound.
func (r *Repository) GetModel(ctx context.Context, id int64) (*models.VehicleModel, error) {
	m, err := scanModel(r.db.QueryRow(ctx, modelSelect+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Model not found")
	}
	return m, err
}

// CreateModel inserts a vehicle model and returns it with its brand name.
func (r *Repository) CreateModel(ctx context.Context, name string, brandID int64) (*models.VehicleModel, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO models (model, brand_id) VALUES ($1, $2) RETURNING id`, name, brandID).Scan(&id)
	if err != nil {
		return nil, mapBrandFK(err)
	}
	return r.GetModel(ctx, id)
}

// UpdateModel changes the given fields of a vehicle model. Nil fields keep their value.
func (r *Repository) UpdateModel(ctx context.Context, id int64, name *string, brandID *int64) (*models.VehicleModel, error) {
	tag, err := r.db.Exec(ctx, `UPDATE models
		SET model = COALESCE($2, model), brand_id = COALESCE($3, brand_id), updated_at = NOW()
		WHERE id = $1`, id, name, brandID)
	if err != nil {
		return nil, mapBrandFK(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("Model not found")
	}
	return r.GetModel(ctx, id)
}

// DeleteModel removes a vehicle model.
func (r *Repository) DeleteModel(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM models WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Model not found")
	}
	return nil
}

func mapBrandFK(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return apperr.Validation("brand does not exist")
	}
	return err
}
