package service

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishSync/internal/models"
	"github.com/Kerhoff/WishSync/internal/repository/memory"
)

// harness is a Service over the in-memory store with one wishlist and three
// members, the shape most tests need.
type harness struct {
	svc      *Service
	store    *memory.Store
	wishlist *models.Wishlist
	alice    *models.WishlistUser // admin
	bob      *models.WishlistUser
	carol    *models.WishlistUser
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	svc := New(logger, store.Wishlists(), store.Users(), store.Wishes())

	wishlist, members, err := svc.CreateWishlist(context.Background(), WishlistInit{
		Name:             "Family Christmas",
		AdminName:        "Alice",
		OtherNames:       []string{"Bob", "Carol"},
		AllowSeeAssigned: true,
		SurpriseMode:     true,
	})
	require.NoError(t, err)
	require.Len(t, members, 3)

	h := &harness{svc: svc, store: store, wishlist: wishlist}
	h.alice = h.member(t, members["Alice"])
	h.bob = h.member(t, members["Bob"])
	h.carol = h.member(t, members["Carol"])
	return h
}

func (h *harness) member(t *testing.T, id uuid.UUID) *models.WishlistUser {
	t.Helper()
	user, err := h.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
}

// addWish creates a wish owned by the given member.
func (h *harness) addWish(t *testing.T, owner *models.WishlistUser, name string) *models.Wish {
	t.Helper()
	wish, err := h.svc.CreateWish(context.Background(), owner, WishCreate{Name: name})
	require.NoError(t, err)
	return wish
}

// claim assigns the wish to the given member, acting as themselves.
func (h *harness) claim(t *testing.T, claimant *models.WishlistUser, wish *models.Wish) {
	t.Helper()
	id := claimant.ID
	_, err := h.svc.UpdateWish(context.Background(), claimant, wish.ID, WishUpdate{
		AssignedUser:    &id,
		AssignedUserSet: true,
	})
	require.NoError(t, err)
}
