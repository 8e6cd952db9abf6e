package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/errs"
	"github.com/Kerhoff/WishSync/internal/models"
)

// WishCreate carries the fields for a new wish. SuggestedFor, when set,
// makes the wish a suggestion: it is owned by that member and the requester
// becomes the suggester.
type WishCreate struct {
	Name         string     `json:"name"`
	Price        string     `json:"price"`
	URL          string     `json:"url"`
	Description  string     `json:"description"`
	SuggestedFor *uuid.UUID `json:"suggestedFor"`
}

// WishUpdate carries a partial wish update. A nil pointer means the field
// was not supplied and must be left unchanged; NameNull and AssignedUserSet
// record fields that were supplied as explicit nulls, which is meaningful
// for the claim (null releases it) and illegal for the name.
type WishUpdate struct {
	Name            *string
	NameNull        bool
	Price           *string
	URL             *string
	Description     *string
	AssignedUser    *uuid.UUID
	AssignedUserSet bool
}

// DecodeWishUpdate builds a WishUpdate from raw JSON fields, keeping the
// distinction between an absent key and an explicit null. Both transports
// feed their payloads through here.
func DecodeWishUpdate(fields map[string]json.RawMessage) (WishUpdate, error) {
	var upd WishUpdate

	decodeString := func(raw json.RawMessage, dst **string) error {
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if v == nil {
			empty := ""
			v = &empty
		}
		*dst = v
		return nil
	}

	for key, raw := range fields {
		var err error
		switch key {
		case "name":
			var v *string
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.Name = v
				upd.NameNull = v == nil
			}
		case "price":
			err = decodeString(raw, &upd.Price)
		case "url":
			err = decodeString(raw, &upd.URL)
		case "description":
			err = decodeString(raw, &upd.Description)
		case "assignedUser":
			upd.AssignedUserSet = true
			var v *uuid.UUID
			if err = json.Unmarshal(raw, &v); err == nil {
				upd.AssignedUser = v
			}
		default:
			// Unknown keys are ignored, matching lenient clients.
		}
		if err != nil {
			return WishUpdate{}, errs.NewFieldValidation("Wish", key, fmt.Sprintf("invalid value for %s", key))
		}
	}

	return upd, nil
}

// hasDataFields reports whether the update touches any descriptive field,
// as opposed to only the claim.
func (u WishUpdate) hasDataFields() bool {
	return u.Name != nil || u.NameNull || u.Price != nil || u.URL != nil || u.Description != nil
}

// UpdateResult describes what a successful UpdateWish did, so the gateway
// can pick the right broadcast action.
type UpdateResult struct {
	Wish *models.Wish
	// ClaimChanged is true when a claim was taken or released.
	ClaimChanged bool
	// Purged is true when releasing the claim of a soft-deleted wish
	// permanently removed it. Wish still holds the last known state.
	Purged bool
}

// CreateWish creates a wish for the requester, or for another member when
// the request is a suggestion.
func (s *Service) CreateWish(ctx context.Context, requester *models.WishlistUser, in WishCreate) (*models.Wish, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.NewFieldValidation("Wish", "name", models.MsgNameCanNotBeNull)
	}

	wish := &models.Wish{
		OwnerID:     requester.ID,
		Name:        in.Name,
		Price:       in.Price,
		URL:         in.URL,
		Description: in.Description,
	}

	if in.SuggestedFor != nil {
		target, err := s.memberOf(ctx, requester.WishlistID, *in.SuggestedFor)
		if err != nil {
			return nil, err
		}
		suggester := requester.ID
		wish.OwnerID = target.ID
		wish.SuggestedByID = &suggester
	}

	created, err := s.Wishes.Create(ctx, wish)
	if err != nil {
		return nil, fmt.Errorf("failed to create wish: %w", err)
	}

	ownerName := requester.Name
	if in.SuggestedFor != nil {
		if owner, err := s.Users.GetByID(ctx, created.OwnerID); err == nil && owner != nil {
			ownerName = owner.Name
		}
	}
	s.logger.WithField("wish_id", created.ID).Infof("Wish %q created for %s", created.Name, ownerName)

	// Suggested wishes are never announced: the owner reads the same chat,
	// and a suggestion must stay invisible to them.
	if in.SuggestedFor == nil {
		s.notifier.WishCreated(ownerName, created.Name)
	}

	return created, nil
}

// UpdateWish applies a partial update to a wish. Descriptive fields are
// restricted to the wish's edit authority; the claim follows the transition
// table in models.Wish.ValidateClaim and is committed with a store-level
// compare-and-set so two racing claimants cannot both win.
func (s *Service) UpdateWish(ctx context.Context, requester *models.WishlistUser, wishID uuid.UUID, upd WishUpdate) (UpdateResult, error) {
	wish, err := s.getWish(ctx, wishID)
	if err != nil {
		return UpdateResult{}, err
	}

	if upd.hasDataFields() {
		// A soft-deleted wish only exists to keep its claimant informed;
		// its data can no longer be edited.
		if wish.Deleted {
			return UpdateResult{}, errs.NewNotFound("Wish", wishID.String())
		}
		if err := wish.AuthorizeEdit(requester.ID); err != nil {
			return UpdateResult{}, err
		}
		if upd.NameNull || (upd.Name != nil && strings.TrimSpace(*upd.Name) == "") {
			return UpdateResult{}, errs.NewFieldValidation("Wish", "name", models.MsgNameCanNotBeNull)
		}
	}

	result := UpdateResult{}

	if upd.AssignedUserSet {
		step, err := wish.ValidateClaim(upd.AssignedUser, requester.ID)
		if err != nil {
			return UpdateResult{}, err
		}

		switch step {
		case models.ClaimTake:
			if _, err := s.memberOf(ctx, requester.WishlistID, *upd.AssignedUser); err != nil {
				return UpdateResult{}, errs.NewFieldValidation("Wish", "assigned_user", models.MsgClaimedUserNotFound)
			}
			ok, err := s.Wishes.SetClaim(ctx, wish.ID, nil, upd.AssignedUser)
			if err != nil {
				return UpdateResult{}, fmt.Errorf("failed to claim wish: %w", err)
			}
			if !ok {
				// Lost the race: someone else claimed first.
				return UpdateResult{}, errs.NewFieldValidation("Wish", "assigned_user", models.MsgClaimUnauthorized)
			}
			claimant := *upd.AssignedUser
			wish.ClaimedByID = &claimant
			result.ClaimChanged = true

		case models.ClaimRelease:
			ok, err := s.Wishes.SetClaim(ctx, wish.ID, wish.ClaimedByID, nil)
			if err != nil {
				return UpdateResult{}, fmt.Errorf("failed to release wish claim: %w", err)
			}
			if !ok {
				return UpdateResult{}, errs.NewFieldValidation("Wish", "assigned_user", models.MsgClaimUnauthorized)
			}
			wish.ClaimedByID = nil
			result.ClaimChanged = true

		case models.ClaimNoop:
			// Nothing to change.
		}
	}

	if upd.hasDataFields() {
		if upd.Name != nil {
			wish.Name = *upd.Name
		}
		if upd.Price != nil {
			wish.Price = *upd.Price
		}
		if upd.URL != nil {
			wish.URL = *upd.URL
		}
		if upd.Description != nil {
			wish.Description = *upd.Description
		}

		updated, err := s.Wishes.Update(ctx, wish)
		if err != nil {
			return UpdateResult{}, fmt.Errorf("failed to update wish: %w", err)
		}
		if updated == nil {
			return UpdateResult{}, errs.NewNotFound("Wish", wishID.String())
		}
		wish = updated
	}

	// Releasing the claim was the only thing keeping a soft-deleted wish
	// alive; it is now permanently removed.
	if result.ClaimChanged && wish.ClaimedByID == nil && wish.Deleted {
		if err := s.Wishes.Delete(ctx, wish.ID); err != nil {
			return UpdateResult{}, fmt.Errorf("failed to purge deleted wish: %w", err)
		}
		result.Purged = true
		s.logger.WithField("wish_id", wish.ID).Info("Soft-deleted wish purged after claim release")
	}

	result.Wish = wish
	return result, nil
}

// DeleteWish removes a wish. A claimed wish is only soft-deleted so the
// claimant stays informed; an unclaimed wish is removed permanently.
// Authorization matches descriptive edits: the suggester when the wish was
// suggested, the owner otherwise.
func (s *Service) DeleteWish(ctx context.Context, requester *models.WishlistUser, wishID uuid.UUID) (*models.Wish, bool, error) {
	wish, err := s.getWish(ctx, wishID)
	if err != nil {
		return nil, false, err
	}

	if err := wish.AuthorizeEdit(requester.ID); err != nil {
		return nil, false, err
	}

	if wish.ClaimedByID != nil {
		if wish.Deleted {
			return wish, false, nil
		}
		wish.Deleted = true
		updated, err := s.Wishes.Update(ctx, wish)
		if err != nil {
			return nil, false, fmt.Errorf("failed to soft-delete wish: %w", err)
		}
		if updated == nil {
			return nil, false, errs.NewNotFound("Wish", wishID.String())
		}
		s.logger.WithField("wish_id", wish.ID).Info("Wish soft-deleted, claim retained")
		return updated, false, nil
	}

	if err := s.Wishes.Delete(ctx, wish.ID); err != nil {
		return nil, false, fmt.Errorf("failed to delete wish: %w", err)
	}
	s.logger.WithField("wish_id", wish.ID).Info("Wish permanently deleted")
	return wish, true, nil
}

// GetMember resolves a member by id, returning a typed not-found error when
// the id is unknown.
func (s *Service) GetMember(ctx context.Context, id uuid.UUID) (*models.WishlistUser, error) {
	user, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user %s: %w", id, err)
	}
	if user == nil {
		return nil, errs.NewNotFound("User", id.String())
	}
	return user, nil
}

func (s *Service) getWish(ctx context.Context, id uuid.UUID) (*models.Wish, error) {
	wish, err := s.Wishes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup wish %s: %w", id, err)
	}
	if wish == nil {
		return nil, errs.NewNotFound("Wish", id.String())
	}
	return wish, nil
}

// memberOf resolves a member and checks it belongs to the given wishlist.
func (s *Service) memberOf(ctx context.Context, wishlistID, userID uuid.UUID) (*models.WishlistUser, error) {
	user, err := s.GetMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.WishlistID != wishlistID {
		return nil, errs.NewNotFound("User", userID.String())
	}
	return user, nil
}
