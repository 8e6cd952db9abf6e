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

type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new wishlist member repository.
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.WishlistUser) (*models.WishlistUser, error) {
	query := `
		INSERT INTO wishlist_users (id, wishlist_id, name, is_admin, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.WishlistID,
		user.Name,
		user.IsAdmin,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create wishlist user: %w", err)
	}

	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WishlistUser, error) {
	query := `
		SELECT id, wishlist_id, name, is_admin, is_active, created_at, updated_at
		FROM wishlist_users
		WHERE id = $1`

	user := &models.WishlistUser{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.WishlistID,
		&user.Name,
		&user.IsAdmin,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get wishlist user by ID: %w", err)
	}

	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.WishlistUser) (*models.WishlistUser, error) {
	query := `
		UPDATE wishlist_users
		SET name = $2, is_active = $3, updated_at = $4
		WHERE id = $1`

	user.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.IsActive,
		user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update wishlist user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return user, nil
}

func (r *userRepository) ListByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error) {
	query := `
		SELECT id, wishlist_id, name, is_admin, is_active, created_at, updated_at
		FROM wishlist_users
		WHERE wishlist_id = $1
		ORDER BY name ASC, is_active DESC, created_at ASC`

	return r.queryUsers(ctx, query, wishlistID)
}

func (r *userRepository) ListActiveByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error) {
	query := `
		SELECT id, wishlist_id, name, is_admin, is_active, created_at, updated_at
		FROM wishlist_users
		WHERE wishlist_id = $1 AND is_active = true
		ORDER BY name ASC, created_at ASC`

	return r.queryUsers(ctx, query, wishlistID)
}

func (r *userRepository) queryUsers(ctx context.Context, query string, wishlistID uuid.UUID) ([]*models.WishlistUser, error) {
	rows, err := r.db.QueryContext(ctx, query, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist users: %w", err)
	}
	defer rows.Close()

	var users []*models.WishlistUser
	for rows.Next() {
		user := &models.WishlistUser{}
		if err := rows.Scan(
			&user.ID,
			&user.WishlistID,
			&user.Name,
			&user.IsAdmin,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}
