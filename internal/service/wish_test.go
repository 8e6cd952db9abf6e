package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/WishSync/internal/errs"
	"github.com/Kerhoff/WishSync/internal/models"
)

func TestCreateWishRequiresName(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateWish(context.Background(), h.bob, WishCreate{Name: "   "})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, models.MsgNameCanNotBeNull, err.Error())
}

func TestCreateWishSuggestion(t *testing.T) {
	h := newHarness(t)

	// Bob suggests a wish for Alice: Alice owns it, Bob is the suggester.
	wish, err := h.svc.CreateWish(context.Background(), h.bob, WishCreate{
		Name:         "Surprise scarf",
		SuggestedFor: &h.alice.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, h.alice.ID, wish.OwnerID)
	require.NotNil(t, wish.SuggestedByID)
	assert.Equal(t, h.bob.ID, *wish.SuggestedByID)
}

// recordingNotifier captures announcements for assertions.
type recordingNotifier struct {
	created []string
	joined  []string
}

func (n *recordingNotifier) WishCreated(ownerName, wishName string) {
	n.created = append(n.created, ownerName+":"+wishName)
}

func (n *recordingNotifier) MemberJoined(memberName string) {
	n.joined = append(n.joined, memberName)
}

func TestCreateWishSuggestionIsNotAnnounced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec := &recordingNotifier{}
	h.svc.SetNotifier(rec)

	// An ordinary wish is announced to the group.
	_, err := h.svc.CreateWish(ctx, h.bob, WishCreate{Name: "Game"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob:Game"}, rec.created)

	// A suggestion is not: the owner reads the announcement channel too.
	_, err = h.svc.CreateWish(ctx, h.bob, WishCreate{
		Name:         "Surprise scarf",
		SuggestedFor: &h.alice.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob:Game"}, rec.created)
}

func TestCreateWishSuggestionForUnknownMember(t *testing.T) {
	h := newHarness(t)

	unknown := uuid.New()
	_, err := h.svc.CreateWish(context.Background(), h.bob, WishCreate{
		Name:         "Surprise scarf",
		SuggestedFor: &unknown,
	})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestUpdateWishEditAuthority(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wish := h.addWish(t, h.alice, "Book")
	newName := "Hardcover book"

	// Only the owner edits an ordinary wish.
	_, err := h.svc.UpdateWish(ctx, h.bob, wish.ID, WishUpdate{Name: &newName})
	require.Error(t, err)
	assert.Equal(t, models.MsgOnlyOwnerCanEdit, err.Error())

	res, err := h.svc.UpdateWish(ctx, h.alice, wish.ID, WishUpdate{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, res.Wish.Name)

	// Only the suggester edits a suggested wish, the owner included.
	suggested, err := h.svc.CreateWish(ctx, h.bob, WishCreate{
		Name:         "Surprise scarf",
		SuggestedFor: &h.alice.ID,
	})
	require.NoError(t, err)

	_, err = h.svc.UpdateWish(ctx, h.alice, suggested.ID, WishUpdate{Name: &newName})
	require.Error(t, err)
	assert.Equal(t, models.MsgOnlySuggesterCanEdit, err.Error())

	res, err = h.svc.UpdateWish(ctx, h.bob, suggested.ID, WishUpdate{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, newName, res.Wish.Name)
}

func TestUpdateWishRejectsNullName(t *testing.T) {
	h := newHarness(t)
	wish := h.addWish(t, h.alice, "Book")

	_, err := h.svc.UpdateWish(context.Background(), h.alice, wish.ID, WishUpdate{NameNull: true})
	require.Error(t, err)
	assert.Equal(t, models.MsgNameCanNotBeNull, err.Error())

	empty := " "
	_, err = h.svc.UpdateWish(context.Background(), h.alice, wish.ID, WishUpdate{Name: &empty})
	require.Error(t, err)
	assert.Equal(t, models.MsgNameCanNotBeNull, err.Error())
}

func TestClaimLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wish := h.addWish(t, h.alice, "Book")

	// The owner cannot claim their own wish.
	aliceID := h.alice.ID
	_, err := h.svc.UpdateWish(ctx, h.alice, wish.ID, WishUpdate{
		AssignedUser: &aliceID, AssignedUserSet: true,
	})
	require.Error(t, err)
	assert.Equal(t, models.MsgClaimUnauthorized, err.Error())

	// Nobody can claim on someone else's behalf.
	carolID := h.carol.ID
	_, err = h.svc.UpdateWish(ctx, h.bob, wish.ID, WishUpdate{
		AssignedUser: &carolID, AssignedUserSet: true,
	})
	require.Error(t, err)
	assert.Equal(t, models.MsgClaimUnauthorized, err.Error())

	// Bob claims for himself.
	bobID := h.bob.ID
	res, err := h.svc.UpdateWish(ctx, h.bob, wish.ID, WishUpdate{
		AssignedUser: &bobID, AssignedUserSet: true,
	})
	require.NoError(t, err)
	assert.True(t, res.ClaimChanged)
	require.NotNil(t, res.Wish.ClaimedByID)
	assert.Equal(t, h.bob.ID, *res.Wish.ClaimedByID)

	// Carol cannot release Bob's claim, nor take the claim over.
	_, err = h.svc.UpdateWish(ctx, h.carol, wish.ID, WishUpdate{AssignedUserSet: true})
	require.Error(t, err)
	assert.Equal(t, models.MsgClaimUnauthorized, err.Error())

	_, err = h.svc.UpdateWish(ctx, h.carol, wish.ID, WishUpdate{
		AssignedUser: &carolID, AssignedUserSet: true,
	})
	require.Error(t, err)
	assert.Equal(t, models.MsgClaimUnauthorized, err.Error())

	// Bob releases; the wish is claimable again and Carol takes it.
	res, err = h.svc.UpdateWish(ctx, h.bob, wish.ID, WishUpdate{AssignedUserSet: true})
	require.NoError(t, err)
	assert.True(t, res.ClaimChanged)
	assert.Nil(t, res.Wish.ClaimedByID)

	res, err = h.svc.UpdateWish(ctx, h.carol, wish.ID, WishUpdate{
		AssignedUser: &carolID, AssignedUserSet: true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Wish.ClaimedByID)
	assert.Equal(t, h.carol.ID, *res.Wish.ClaimedByID)
}

func TestClaimNoopWhenUnclaimed(t *testing.T) {
	h := newHarness(t)
	wish := h.addWish(t, h.alice, "Book")

	// Explicit null on an unclaimed wish changes nothing, for any member.
	res, err := h.svc.UpdateWish(context.Background(), h.bob, wish.ID, WishUpdate{AssignedUserSet: true})
	require.NoError(t, err)
	assert.False(t, res.ClaimChanged)
	assert.Nil(t, res.Wish.ClaimedByID)
}

func TestClaimUnknownClaimant(t *testing.T) {
	h := newHarness(t)
	wish := h.addWish(t, h.alice, "Book")

	// A member id outside the wishlist cannot be used, even by itself.
	ghost := &models.WishlistUser{ID: uuid.New(), WishlistID: h.wishlist.ID}
	_, err := h.svc.UpdateWish(context.Background(), ghost, wish.ID, WishUpdate{
		AssignedUser: &ghost.ID, AssignedUserSet: true,
	})
	require.Error(t, err)
	assert.Equal(t, models.MsgClaimedUserNotFound, err.Error())
}

func TestUpdateDeletedWishData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wish := h.addWish(t, h.alice, "Book")
	h.claim(t, h.bob, wish)

	// Claimed, so deleting soft-deletes.
	deleted, purged, err := h.svc.DeleteWish(ctx, h.alice, wish.ID)
	require.NoError(t, err)
	assert.False(t, purged)
	assert.True(t, deleted.Deleted)

	// Descriptive edits on a soft-deleted wish report it as gone.
	newName := "Hardcover book"
	_, err = h.svc.UpdateWish(ctx, h.alice, wish.ID, WishUpdate{Name: &newName})
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestReleaseClaimPurgesDeletedWish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wish := h.addWish(t, h.alice, "Book")
	h.claim(t, h.bob, wish)

	_, purged, err := h.svc.DeleteWish(ctx, h.alice, wish.ID)
	require.NoError(t, err)
	require.False(t, purged)

	// The claim works on the soft-deleted wish; releasing it purges.
	res, err := h.svc.UpdateWish(ctx, h.bob, wish.ID, WishUpdate{AssignedUserSet: true})
	require.NoError(t, err)
	assert.True(t, res.ClaimChanged)
	assert.True(t, res.Purged)

	stored, err := h.store.Wishes().GetByID(ctx, wish.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestDeleteWish(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Unclaimed wishes are removed permanently.
	wish := h.addWish(t, h.alice, "Book")
	_, purged, err := h.svc.DeleteWish(ctx, h.alice, wish.ID)
	require.NoError(t, err)
	assert.True(t, purged)

	stored, err := h.store.Wishes().GetByID(ctx, wish.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	// Claimed wishes are only soft-deleted; the claim stays.
	claimed := h.addWish(t, h.alice, "Game")
	h.claim(t, h.bob, claimed)

	deleted, purged, err := h.svc.DeleteWish(ctx, h.alice, claimed.ID)
	require.NoError(t, err)
	assert.False(t, purged)
	assert.True(t, deleted.Deleted)
	require.NotNil(t, deleted.ClaimedByID)
	assert.Equal(t, h.bob.ID, *deleted.ClaimedByID)

	// Deleting a wish that is already soft-deleted changes nothing.
	again, purged, err := h.svc.DeleteWish(ctx, h.alice, claimed.ID)
	require.NoError(t, err)
	assert.False(t, purged)
	assert.True(t, again.Deleted)
}

func TestDeleteWishAuthority(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wish := h.addWish(t, h.alice, "Book")
	_, _, err := h.svc.DeleteWish(ctx, h.bob, wish.ID)
	require.Error(t, err)
	assert.Equal(t, models.MsgOnlyOwnerCanEdit, err.Error())

	suggested, err := h.svc.CreateWish(ctx, h.bob, WishCreate{
		Name:         "Surprise scarf",
		SuggestedFor: &h.alice.ID,
	})
	require.NoError(t, err)

	_, _, err = h.svc.DeleteWish(ctx, h.alice, suggested.ID)
	require.Error(t, err)
	assert.Equal(t, models.MsgOnlySuggesterCanEdit, err.Error())

	_, purged, err := h.svc.DeleteWish(ctx, h.bob, suggested.ID)
	require.NoError(t, err)
	assert.True(t, purged)
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wish := h.addWish(t, h.alice, "Book")

	claimants := []*models.WishlistUser{h.bob, h.carol}
	results := make([]error, len(claimants))

	var wg sync.WaitGroup
	for i, claimant := range claimants {
		wg.Add(1)
		go func(i int, claimant *models.WishlistUser) {
			defer wg.Done()
			id := claimant.ID
			_, err := h.svc.UpdateWish(ctx, claimant, wish.ID, WishUpdate{
				AssignedUser: &id, AssignedUserSet: true,
			})
			results[i] = err
		}(i, claimant)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.Equal(t, models.MsgClaimUnauthorized, err.Error())
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent claimant must win")

	stored, err := h.store.Wishes().GetByID(ctx, wish.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotNil(t, stored.ClaimedByID)
}

func TestDecodeWishUpdate(t *testing.T) {
	raw := func(s string) map[string]json.RawMessage {
		var fields map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(s), &fields))
		return fields
	}

	// Absent fields stay nil; explicit nulls are recorded as such.
	upd, err := DecodeWishUpdate(raw(`{"name":"Book"}`))
	require.NoError(t, err)
	require.NotNil(t, upd.Name)
	assert.Equal(t, "Book", *upd.Name)
	assert.False(t, upd.NameNull)
	assert.Nil(t, upd.Price)
	assert.False(t, upd.AssignedUserSet)

	upd, err = DecodeWishUpdate(raw(`{"name":null}`))
	require.NoError(t, err)
	assert.Nil(t, upd.Name)
	assert.True(t, upd.NameNull)

	id := uuid.New()
	upd, err = DecodeWishUpdate(raw(`{"assignedUser":"` + id.String() + `"}`))
	require.NoError(t, err)
	assert.True(t, upd.AssignedUserSet)
	require.NotNil(t, upd.AssignedUser)
	assert.Equal(t, id, *upd.AssignedUser)

	upd, err = DecodeWishUpdate(raw(`{"assignedUser":null}`))
	require.NoError(t, err)
	assert.True(t, upd.AssignedUserSet)
	assert.Nil(t, upd.AssignedUser)

	// A null descriptive field clears it rather than failing.
	upd, err = DecodeWishUpdate(raw(`{"price":null}`))
	require.NoError(t, err)
	require.NotNil(t, upd.Price)
	assert.Empty(t, *upd.Price)

	// Unknown keys are ignored; malformed values are rejected.
	_, err = DecodeWishUpdate(raw(`{"somethingElse":42}`))
	require.NoError(t, err)

	_, err = DecodeWishUpdate(raw(`{"assignedUser":"not-a-uuid"}`))
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
}
