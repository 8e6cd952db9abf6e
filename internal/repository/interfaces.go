package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/models"
)

// Lookups return (nil, nil) when the record does not exist; callers translate
// that into their own not-found error.

// WishlistRepository defines the interface for wishlist data operations.
type WishlistRepository interface {
	Create(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error)
	Update(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error)
}

// UserRepository defines the interface for wishlist member data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.WishlistUser) (*models.WishlistUser, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.WishlistUser, error)
	Update(ctx context.Context, user *models.WishlistUser) (*models.WishlistUser, error)
	// ListByWishlist returns every member of the wishlist, active or not,
	// ordered by name ascending with active members first among same names,
	// creation order breaking remaining ties.
	ListByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error)
	// ListActiveByWishlist returns only active members, ordered by name
	// ascending, creation order breaking ties.
	ListActiveByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error)
}

// WishRepository defines the interface for wish data operations.
type WishRepository interface {
	Create(ctx context.Context, wish *models.Wish) (*models.Wish, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wish, error)
	// Update persists the wish's descriptive fields and deleted flag. The
	// claim is changed only through SetClaim.
	Update(ctx context.Context, wish *models.Wish) (*models.Wish, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByOwner returns the owner's wishes in creation order, including
	// soft-deleted ones.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Wish, error)
	// SetClaim moves the wish's claim from expected to next as a single
	// compare-and-set; it reports false when the stored claimant no longer
	// matches expected, so exactly one of two racing claimants wins.
	SetClaim(ctx context.Context, id uuid.UUID, expected, next *uuid.UUID) (bool, error)
}
