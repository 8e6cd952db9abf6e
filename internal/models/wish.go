package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/errs"
)

// Error messages shared by the mutation engine and its tests.
const (
	MsgOnlyOwnerCanEdit     = "Only the owner of the wish can change the wish data."
	MsgOnlySuggesterCanEdit = "Only the suggester can edit this suggested wish."
	MsgClaimUnauthorized    = "Modifying assigned user unauthorized"
	MsgNameCanNotBeNull     = "Name can not be null"
	MsgClaimedUserNotFound  = "The user the wish is being assigned to does not exist."
)

// Wish is a single requested gift item belonging to one member.
//
// ClaimedByID is the member intending to give the gift; it must never equal
// OwnerID. SuggestedByID is set when someone other than the owner proposed
// the wish on the owner's behalf; such a wish is hidden from its owner
// entirely. Deleted marks a soft-deleted wish that is kept around only
// because it is still claimed.
type Wish struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	OwnerID       uuid.UUID  `json:"owner_id" db:"owner_id"`
	Name          string     `json:"name" db:"name"`
	Price         string     `json:"price" db:"price"`
	URL           string     `json:"url" db:"url"`
	Description   string     `json:"description" db:"description"`
	ClaimedByID   *uuid.UUID `json:"claimed_by_id" db:"claimed_by_id"`
	SuggestedByID *uuid.UUID `json:"suggested_by_id" db:"suggested_by_id"`
	Deleted       bool       `json:"deleted" db:"deleted"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// EditAuthority returns the single member allowed to change the wish's
// descriptive fields: the suggester when the wish was suggested, the owner
// otherwise.
func (w *Wish) EditAuthority() uuid.UUID {
	if w.SuggestedByID != nil {
		return *w.SuggestedByID
	}
	return w.OwnerID
}

// AuthorizeEdit checks that userID may change the wish's descriptive fields
// (everything except the claim). The claim itself is governed by
// ValidateClaim, independent of edit authority.
func (w *Wish) AuthorizeEdit(userID uuid.UUID) error {
	if w.EditAuthority() == userID {
		return nil
	}
	if w.SuggestedByID != nil {
		return errs.NewFieldValidation("Wish", "", MsgOnlySuggesterCanEdit)
	}
	return errs.NewFieldValidation("Wish", "", MsgOnlyOwnerCanEdit)
}

// ClaimStep is the outcome of a legal claim transition.
type ClaimStep int

const (
	// ClaimNoop: no claimant before, none requested; nothing to change.
	ClaimNoop ClaimStep = iota
	// ClaimTake: the requester claims the unclaimed wish for themselves.
	ClaimTake
	// ClaimRelease: the current claimant releases their own claim.
	ClaimRelease
)

// ValidateClaim decides whether requester may move the wish's claim to
// candidate (nil meaning unclaimed). The only legal transitions are:
//
//	unclaimed -> unclaimed        anyone      (no-op)
//	unclaimed -> claimed by X     X itself, X != owner
//	claimed by X -> unclaimed     X itself
//
// Everything else, including reassignment to a third party, an owner
// claiming their own wish, or a non-claimant unclaiming, is rejected.
func (w *Wish) ValidateClaim(candidate *uuid.UUID, requester uuid.UUID) (ClaimStep, error) {
	current := w.ClaimedByID

	if candidate == nil && current == nil {
		return ClaimNoop, nil
	}

	if current == nil && candidate != nil &&
		*candidate != w.OwnerID && *candidate == requester {
		return ClaimTake, nil
	}

	if candidate == nil && current != nil && *current == requester {
		return ClaimRelease, nil
	}

	return 0, errs.NewFieldValidation("Wish", "assigned_user", MsgClaimUnauthorized)
}
