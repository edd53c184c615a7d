package advertising

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/autoparts-market/backend/internal/models"
	"github.com/autoparts-market/backend/pkg/apperr"
	"github.com/autoparts-market/backend/pkg/database"
)

// activationLockKey serialises every transaction that may change which row is active.
const activationLockKey int64 = 0x6164766572 // "adver"

const selectColumns = `id, image, COALESCE(link,''), button_text, status, created_at, updated_at`

// Repository handles advertising persistence.
type Repository struct {
	db database.DBTX
}

// NewRepository creates an advertising repository over a pool (or any DBTX).
func NewRepository(db database.DBTX) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAdvertising(row rowScanner) (*models.Advertising, error) {
	var a models.Advertising
	if err := row.Scan(&a.ID, &a.Image, &a.Link, &a.ButtonText, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns every advertising row, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Advertising, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM advertising ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := make([]models.Advertising, 0)
	for rows.Next() {
		a, err := scanAdvertising(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetByID returns an advertising row or apperr.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Advertising, error) {
	a, err := scanAdvertising(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM advertising WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("Advertising not found")
	}
	return a, err
}

// GetActive returns the active row, or nil when none is active.
func (r *Repository) GetActive(ctx context.Context) (*models.Advertising, error) {
	a, err := scanAdvertising(r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM advertising WHERE status = TRUE ORDER BY id DESC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// DeactivateAll clears status on every row.
func (r *Repository) DeactivateAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `UPDATE advertising SET status = FALSE, updated_at = NOW() WHERE status = TRUE`)
	return err
}

// Insert creates a row and fills in ID and timestamps.
func (r *Repository) Insert(ctx context.Context, a *models.Advertising) error {
	const q = `INSERT INTO advertising (image, link, button_text, status)
		VALUES ($1, NULLIF($2,''), $3, $4)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, q, a.Image, a.Link, a.ButtonText, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// Update writes every mutable column of a and refreshes UpdatedAt.
func (r *Repository) Update(ctx context.Context, a *models.Advertising) error {
	const q = `UPDATE advertising
		SET image = $2, link = NULLIF($3,''), button_text = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.QueryRow(ctx, q, a.ID, a.Image, a.Link, a.ButtonText, a.Status).Scan(&a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("Advertising not found")
	}
	return err
}

// Delete removes a row by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM advertising WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Advertising not found")
	}
	return nil
}

// Atomic runs fn in one transaction holding the activation advisory lock, so a
// deactivate-all followed by a write can never interleave with another one.
func (r *Repository) Atomic(ctx context.Context, fn func(Store) error) error {
	return database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, activationLockKey); err != nil {
			return err
		}
		return fn(&Repository{db: tx})
	})
}
