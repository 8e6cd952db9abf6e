package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/models"
	"github.com/Kerhoff/WishSync/internal/repository"
)

type wishRepository struct {
	db *sql.DB
}

// NewWishRepository creates a new wish repository.
func NewWishRepository(db *sql.DB) repository.WishRepository {
	return &wishRepository{db: db}
}

func (r *wishRepository) Create(ctx context.Context, wish *models.Wish) (*models.Wish, error) {
	query := `
		INSERT INTO wishes (id, owner_id, name, price, url, description, claimed_by_id, suggested_by_id, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`

	if wish.ID == uuid.Nil {
		wish.ID = uuid.New()
	}
	now := time.Now()
	wish.CreatedAt = now
	wish.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		wish.ID,
		wish.OwnerID,
		wish.Name,
		wish.Price,
		wish.URL,
		wish.Description,
		wish.ClaimedByID,
		wish.SuggestedByID,
		wish.Deleted,
		wish.CreatedAt,
		wish.UpdatedAt,
	).Scan(&wish.CreatedAt, &wish.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create wish: %w", err)
	}

	return wish, nil
}

func (r *wishRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wish, error) {
	query := `
		SELECT id, owner_id, name, price, url, description, claimed_by_id, suggested_by_id, deleted, created_at, updated_at
		FROM wishes
		WHERE id = $1`

	wish := &models.Wish{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&wish.ID,
		&wish.OwnerID,
		&wish.Name,
		&wish.Price,
		&wish.URL,
		&wish.Description,
		&wish.ClaimedByID,
		&wish.SuggestedByID,
		&wish.Deleted,
		&wish.CreatedAt,
		&wish.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wish by ID: %w", err)
	}

	return wish, nil
}

func (r *wishRepository) Update(ctx context.Context, wish *models.Wish) (*models.Wish, error) {
	query := `
		UPDATE wishes
		SET name = $2, price = $3, url = $4, description = $5, deleted = $6, updated_at = $7
		WHERE id = $1`

	wish.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		wish.ID,
		wish.Name,
		wish.Price,
		wish.URL,
		wish.Description,
		wish.Deleted,
		wish.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update wish: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return wish, nil
}

func (r *wishRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM wishes WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete wish: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("wish %s not found", id)
	}

	return nil
}

func (r *wishRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Wish, error) {
	query := `
		SELECT id, owner_id, name, price, url, description, claimed_by_id, suggested_by_id, deleted, created_at, updated_at
		FROM wishes
		WHERE owner_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishes by owner: %w", err)
	}
	defer rows.Close()

	var wishes []*models.Wish
	for rows.Next() {
		wish := &models.Wish{}
		if err := rows.Scan(
			&wish.ID,
			&wish.OwnerID,
			&wish.Name,
			&wish.Price,
			&wish.URL,
			&wish.Description,
			&wish.ClaimedByID,
			&wish.SuggestedByID,
			&wish.Deleted,
			&wish.CreatedAt,
			&wish.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wish: %w", err)
		}
		wishes = append(wishes, wish)
	}

	return wishes, rows.Err()
}

// SetClaim performs the claim compare-and-set. The WHERE clause pins the
// currently stored claimant, so of two concurrent claimants exactly one
// update matches a row and the other observes rowsAffected == 0.
func (r *wishRepository) SetClaim(ctx context.Context, id uuid.UUID, expected, next *uuid.UUID) (bool, error) {
	var (
		result sql.Result
		err    error
	)

	if expected == nil {
		query := `
			UPDATE wishes
			SET claimed_by_id = $2, updated_at = $3
			WHERE id = $1 AND claimed_by_id IS NULL`
		result, err = r.db.ExecContext(ctx, query, id, next, time.Now())
	} else {
		query := `
			UPDATE wishes
			SET claimed_by_id = $2, updated_at = $3
			WHERE id = $1 AND claimed_by_id = $4`
		result, err = r.db.ExecContext(ctx, query, id, next, time.Now(), *expected)
	}
	if err != nil {
		return false, fmt.Errorf("failed to set wish claim: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
