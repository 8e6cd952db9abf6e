package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/models"
)

// WishView is the per-viewer representation of a wish. Optional fields are
// pointers so absent values serialize as JSON null, matching the clients.
type WishView struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Price        *string   `json:"price"`
	URL          *string   `json:"url"`
	Description  *string   `json:"description"`
	AssignedUser *string   `json:"assignedUser"`
	SuggestedBy  *string   `json:"suggestedBy"`
	Deleted      bool      `json:"deleted"`
}

// MemberWishesView groups one member's visible wishes under their name.
type MemberWishesView struct {
	User   string     `json:"user"`
	Wishes []WishView `json:"wishes"`
}

// WishlistView is the full projection returned to one viewer.
type WishlistView struct {
	WishlistID         uuid.UUID          `json:"wishListId"`
	Name               string             `json:"name"`
	AllowSeeAssigned   bool               `json:"allowSeeAssigned"`
	SurpriseMode       bool               `json:"surpriseModeEnabled"`
	CurrentUser        string             `json:"currentUser"`
	IsCurrentUserAdmin bool               `json:"isCurrentUserAdmin"`
	UserWishes         []MemberWishesView `json:"userWishes"`
}

// Project computes the viewer's view of the whole wishlist: every active
// member with their non-purged wishes, the viewer's own entry first and the
// rest in name order. The viewer's own entry never contains suggested
// wishes, so a surprise suggestion stays invisible to the person it is for.
// The projection is recomputed in full on every call; nothing is diffed.
func (s *Service) Project(ctx context.Context, wishlist *models.Wishlist, viewer *models.WishlistUser) (*WishlistView, error) {
	members, err := s.Users.ListActiveByWishlist(ctx, wishlist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}

	names, err := s.memberNames(ctx, wishlist.ID)
	if err != nil {
		return nil, err
	}

	// Viewer first, everyone else keeps the repository's name order.
	ordered := make([]*models.WishlistUser, 0, len(members))
	for _, m := range members {
		if m.ID == viewer.ID {
			ordered = append(ordered, m)
		}
	}
	for _, m := range members {
		if m.ID != viewer.ID {
			ordered = append(ordered, m)
		}
	}

	userWishes := make([]MemberWishesView, 0, len(ordered))
	for _, member := range ordered {
		wishes, err := s.Wishes.ListByOwner(ctx, member.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list wishes for member %s: %w", member.ID, err)
		}

		views := make([]WishView, 0, len(wishes))
		for _, wish := range wishes {
			if member.ID == viewer.ID && wish.SuggestedByID != nil {
				continue
			}
			views = append(views, newWishView(wish, names))
		}

		userWishes = append(userWishes, MemberWishesView{User: member.Name, Wishes: views})
	}

	return &WishlistView{
		WishlistID:         wishlist.ID,
		Name:               wishlist.Name,
		AllowSeeAssigned:   wishlist.ShowAssignedToOthers,
		SurpriseMode:       wishlist.SurpriseModeEnabled,
		CurrentUser:        viewer.Name,
		IsCurrentUserAdmin: viewer.IsAdmin,
		UserWishes:         userWishes,
	}, nil
}

// ProjectWish builds the single-wish view used in broadcasts.
func (s *Service) ProjectWish(ctx context.Context, wish *models.Wish) (WishView, string, error) {
	owner, err := s.GetMember(ctx, wish.OwnerID)
	if err != nil {
		return WishView{}, "", err
	}

	names, err := s.memberNames(ctx, owner.WishlistID)
	if err != nil {
		return WishView{}, "", err
	}

	return newWishView(wish, names), owner.Name, nil
}

// memberNames maps every member id (active or not) to its display name, for
// resolving claimant and suggester annotations.
func (s *Service) memberNames(ctx context.Context, wishlistID uuid.UUID) (map[uuid.UUID]string, error) {
	all, err := s.Users.ListByWishlist(ctx, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	names := make(map[uuid.UUID]string, len(all))
	for _, m := range all {
		names[m.ID] = m.Name
	}
	return names, nil
}

func newWishView(wish *models.Wish, names map[uuid.UUID]string) WishView {
	view := WishView{
		ID:      wish.ID,
		Name:    wish.Name,
		Deleted: wish.Deleted,
	}
	if wish.Price != "" {
		price := wish.Price
		view.Price = &price
	}
	if wish.URL != "" {
		url := wish.URL
		view.URL = &url
	}
	if wish.Description != "" {
		description := wish.Description
		view.Description = &description
	}
	if wish.ClaimedByID != nil {
		if name, ok := names[*wish.ClaimedByID]; ok {
			view.AssignedUser = &name
		}
	}
	if wish.SuggestedByID != nil {
		if name, ok := names[*wish.SuggestedByID]; ok {
			view.SuggestedBy = &name
		}
	}
	return view
}
