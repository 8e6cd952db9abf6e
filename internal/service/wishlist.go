package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/Kerhoff/WishSync/internal/errs"
	"github.com/Kerhoff/WishSync/internal/models"
)

// Admin-only operation messages.
const (
	MsgOnlyAdminCanDeactivate = "Only the admin can deactivate a user"
	MsgOnlyAdminCanActivate   = "Only the admin can activate a user"
	MsgOnlyAdminCanAddUser    = "Only the admin can add a user"
	MsgOnlyAdminCanRename     = "Only the admin can update a user"
	MsgOnlyAdminCanUpdateList = "Only the admin can update the wishlist"
	MsgAdminCanNotDeactivate  = "The admin can not be deactivated"
	MsgIdenticalNames         = "Identical names detected. Names need to be different in order to differentiate people"
)

// WishlistInit carries the one-time wishlist setup: the list itself, its
// admin and the other initial members.
type WishlistInit struct {
	Name             string   `json:"wishlistName"`
	AdminName        string   `json:"wishlistAdminName"`
	OtherNames       []string `json:"otherUsersNames"`
	AllowSeeAssigned bool     `json:"allowSeeAssigned"`
	SurpriseMode     bool     `json:"surpriseModeEnabled"`
}

// WishlistSettings carries an admin's update of the wishlist configuration.
type WishlistSettings struct {
	Name             *string `json:"wishlistName"`
	AllowSeeAssigned *bool   `json:"allowSeeAssigned"`
	SurpriseMode     *bool   `json:"surpriseModeEnabled"`
}

// CreateWishlist creates the wishlist together with its initial members and
// returns the member name to id mapping handed out to the group.
func (s *Service) CreateWishlist(ctx context.Context, in WishlistInit) (*models.Wishlist, map[string]uuid.UUID, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, nil, errs.NewFieldValidation("Wishlist", "name", "Wishlist name is required")
	}
	if strings.TrimSpace(in.AdminName) == "" {
		return nil, nil, errs.NewFieldValidation("WishlistUser", "name", "Admin name is required")
	}

	if err := validateUniqueNames(append([]string{in.AdminName}, in.OtherNames...)); err != nil {
		return nil, nil, err
	}

	wishlist, err := s.Wishlists.Create(ctx, &models.Wishlist{
		Name:                 in.Name,
		ShowAssignedToOthers: in.AllowSeeAssigned,
		SurpriseModeEnabled:  in.SurpriseMode,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create wishlist: %w", err)
	}

	created := make(map[string]uuid.UUID, 1+len(in.OtherNames))

	admin, err := s.Users.Create(ctx, &models.WishlistUser{
		WishlistID: wishlist.ID,
		Name:       in.AdminName,
		IsAdmin:    true,
		IsActive:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create admin member: %w", err)
	}
	created[admin.Name] = admin.ID

	for _, name := range in.OtherNames {
		member, err := s.Users.Create(ctx, &models.WishlistUser{
			WishlistID: wishlist.ID,
			Name:       name,
			IsActive:   true,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create member %q: %w", name, err)
		}
		created[member.Name] = member.ID
	}

	s.logger.WithField("wishlist_id", wishlist.ID).Infof("Created wishlist %q with %d members", wishlist.Name, len(created))
	return wishlist, created, nil
}

// UpdateWishlist applies an admin's settings change.
func (s *Service) UpdateWishlist(ctx context.Context, requester *models.WishlistUser, settings WishlistSettings) (*models.Wishlist, error) {
	if !requester.IsAdmin {
		return nil, errs.NewForbidden(MsgOnlyAdminCanUpdateList)
	}

	wishlist, err := s.GetWishlist(ctx, requester.WishlistID)
	if err != nil {
		return nil, err
	}

	if settings.Name != nil {
		if strings.TrimSpace(*settings.Name) == "" {
			return nil, errs.NewFieldValidation("Wishlist", "name", "Wishlist name is required")
		}
		wishlist.Name = *settings.Name
	}
	if settings.AllowSeeAssigned != nil {
		wishlist.ShowAssignedToOthers = *settings.AllowSeeAssigned
	}
	if settings.SurpriseMode != nil {
		wishlist.SurpriseModeEnabled = *settings.SurpriseMode
	}

	updated, err := s.Wishlists.Update(ctx, wishlist)
	if err != nil {
		return nil, fmt.Errorf("failed to update wishlist: %w", err)
	}
	if updated == nil {
		return nil, errs.NewNotFound("Wishlist", wishlist.ID.String())
	}
	return updated, nil
}

// GetWishlist resolves a wishlist by id.
func (s *Service) GetWishlist(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	wishlist, err := s.Wishlists.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup wishlist %s: %w", id, err)
	}
	if wishlist == nil {
		return nil, errs.NewNotFound("Wishlist", id.String())
	}
	return wishlist, nil
}

// ListMembers returns every member of the wishlist, active or not.
func (s *Service) ListMembers(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error) {
	members, err := s.Users.ListByWishlist(ctx, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// CreateMember adds a new active member. Admin only; the new name must not
// collide with any existing member, active or not.
func (s *Service) CreateMember(ctx context.Context, requester *models.WishlistUser, name string) (*models.WishlistUser, error) {
	if !requester.IsAdmin {
		return nil, errs.NewForbidden(MsgOnlyAdminCanAddUser)
	}
	if strings.TrimSpace(name) == "" {
		return nil, errs.NewFieldValidation("WishlistUser", "name", "Name is required")
	}

	if err := s.checkNameAvailable(ctx, requester.WishlistID, name, uuid.Nil); err != nil {
		return nil, err
	}

	member, err := s.Users.Create(ctx, &models.WishlistUser{
		WishlistID: requester.WishlistID,
		Name:       name,
		IsActive:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	s.logger.WithField("user_id", member.ID).Infof("Member %q added to wishlist %s", member.Name, member.WishlistID)
	s.notifier.MemberJoined(member.Name)
	return member, nil
}

// RenameMember changes a member's display name. Renaming a member to their
// current name is accepted as a no-op rather than reported as a collision.
func (s *Service) RenameMember(ctx context.Context, requester *models.WishlistUser, memberID uuid.UUID, name string) (*models.WishlistUser, error) {
	if !requester.IsAdmin && requester.ID != memberID {
		return nil, errs.NewForbidden(MsgOnlyAdminCanRename)
	}
	if strings.TrimSpace(name) == "" {
		return nil, errs.NewFieldValidation("WishlistUser", "name", "Name is required")
	}

	member, err := s.memberOf(ctx, requester.WishlistID, memberID)
	if err != nil {
		return nil, err
	}
	if member.Name == name {
		return member, nil
	}

	if err := s.checkNameAvailable(ctx, requester.WishlistID, name, member.ID); err != nil {
		return nil, err
	}

	member.Name = name
	updated, err := s.Users.Update(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to rename member: %w", err)
	}
	if updated == nil {
		return nil, errs.NewNotFound("User", memberID.String())
	}
	return updated, nil
}

// DeactivateMember soft-disables a member. The admin cannot be deactivated.
func (s *Service) DeactivateMember(ctx context.Context, requester *models.WishlistUser, memberID uuid.UUID) (*models.WishlistUser, error) {
	if !requester.IsAdmin {
		return nil, errs.NewForbidden(MsgOnlyAdminCanDeactivate)
	}

	member, err := s.memberOf(ctx, requester.WishlistID, memberID)
	if err != nil {
		return nil, err
	}
	if member.IsAdmin {
		return nil, errs.NewValidation(MsgAdminCanNotDeactivate)
	}

	member.IsActive = false
	updated, err := s.Users.Update(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate member: %w", err)
	}
	if updated == nil {
		return nil, errs.NewNotFound("User", memberID.String())
	}
	s.logger.WithField("user_id", memberID).Info("Member deactivated")
	return updated, nil
}

// ActivateMember re-enables a previously deactivated member.
func (s *Service) ActivateMember(ctx context.Context, requester *models.WishlistUser, memberID uuid.UUID) (*models.WishlistUser, error) {
	if !requester.IsAdmin {
		return nil, errs.NewForbidden(MsgOnlyAdminCanActivate)
	}

	member, err := s.memberOf(ctx, requester.WishlistID, memberID)
	if err != nil {
		return nil, err
	}

	member.IsActive = true
	updated, err := s.Users.Update(ctx, member)
	if err != nil {
		return nil, fmt.Errorf("failed to activate member: %w", err)
	}
	if updated == nil {
		return nil, errs.NewNotFound("User", memberID.String())
	}
	s.logger.WithField("user_id", memberID).Info("Member activated")
	return updated, nil
}

// validateUniqueNames rejects a member name list containing duplicates,
// enumerating every offending name.
func validateUniqueNames(names []string) error {
	seen := make(map[string]int, len(names))
	for _, name := range names {
		seen[name]++
	}

	var merr *multierror.Error
	for _, name := range names {
		if seen[name] > 1 {
			merr = multierror.Append(merr, fmt.Errorf("name %q is used more than once", name))
			seen[name] = 0 // report each duplicate once
		}
	}

	if merr != nil {
		return errs.NewFieldValidation("WishlistUser", "name",
			fmt.Sprintf("%s: %v", MsgIdenticalNames, merr))
	}
	return nil
}

// checkNameAvailable rejects names already used by another member of the
// wishlist, active or not. exclude skips the member being renamed.
func (s *Service) checkNameAvailable(ctx context.Context, wishlistID uuid.UUID, name string, exclude uuid.UUID) error {
	members, err := s.Users.ListByWishlist(ctx, wishlistID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}
	for _, m := range members {
		if m.ID != exclude && m.Name == name {
			return errs.NewFieldValidation("WishlistUser", "name",
				fmt.Sprintf("%s: name %q is already taken", MsgIdenticalNames, name))
		}
	}
	return nil
}
