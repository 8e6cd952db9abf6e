package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistUser is a member of a wishlist. Names are unique within a
// wishlist among all members, active or not. Exactly one member is the
// admin, set at creation and never changed.
type WishlistUser struct {
	ID         uuid.UUID `json:"id" db:"id"`
	WishlistID uuid.UUID `json:"wishlist_id" db:"wishlist_id"`
	Name       string    `json:"name" db:"name"`
	IsAdmin    bool      `json:"is_admin" db:"is_admin"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
