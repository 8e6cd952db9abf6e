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

type wishlistRepository struct {
	db *sql.DB
}

// NewWishlistRepository creates a new wishlist repository.
func NewWishlistRepository(db *sql.DB) repository.WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Create(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error) {
	query := `
		INSERT INTO wishlists (id, name, show_assigned_to_others, surprise_mode_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	if wishlist.ID == uuid.Nil {
		wishlist.ID = uuid.New()
	}
	now := time.Now()
	wishlist.CreatedAt = now
	wishlist.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		wishlist.ID,
		wishlist.Name,
		wishlist.ShowAssignedToOthers,
		wishlist.SurpriseModeEnabled,
		wishlist.CreatedAt,
		wishlist.UpdatedAt,
	).Scan(&wishlist.CreatedAt, &wishlist.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create wishlist: %w", err)
	}

	return wishlist, nil
}

func (r *wishlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	query := `
		SELECT id, name, show_assigned_to_others, surprise_mode_enabled, created_at, updated_at
		FROM wishlists
		WHERE id = $1`

	wishlist := &models.Wishlist{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&wishlist.ID,
		&wishlist.Name,
		&wishlist.ShowAssignedToOthers,
		&wishlist.SurpriseModeEnabled,
		&wishlist.CreatedAt,
		&wishlist.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wishlist by ID: %w", err)
	}

	return wishlist, nil
}

func (r *wishlistRepository) Update(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error) {
	query := `
		UPDATE wishlists
		SET name = $2, show_assigned_to_others = $3, surprise_mode_enabled = $4, updated_at = $5
		WHERE id = $1`

	wishlist.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		wishlist.ID,
		wishlist.Name,
		wishlist.ShowAssignedToOthers,
		wishlist.SurpriseModeEnabled,
		wishlist.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update wishlist: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return wishlist, nil
}
