package models

import (
	"time"

	"github.com/google/uuid"
)

// Wishlist represents a shared gift wishlist for a small group of people.
// ShowAssignedToOthers and SurpriseModeEnabled are stored configuration;
// no code path conditions behavior on them yet.
type Wishlist struct {
	ID                   uuid.UUID `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	ShowAssignedToOthers bool      `json:"show_assigned_to_others" db:"show_assigned_to_others"`
	SurpriseModeEnabled  bool      `json:"surprise_mode_enabled" db:"surprise_mode_enabled"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
