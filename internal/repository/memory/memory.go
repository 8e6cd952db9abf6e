// Package memory provides an in-memory implementation of the repository
// interfaces. It backs the unit tests and mirrors the postgres semantics,
// including the claim compare-and-set and (nil, nil) lookups for missing
// records.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/models"
)

// Store holds every aggregate behind a single mutex. Contention is not a
// concern at test scale; what matters is that SetClaim is atomic.
type Store struct {
	mu        sync.Mutex
	wishlists map[uuid.UUID]*models.Wishlist
	users     map[uuid.UUID]*models.WishlistUser
	wishes    map[uuid.UUID]*models.Wish
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		wishlists: make(map[uuid.UUID]*models.Wishlist),
		users:     make(map[uuid.UUID]*models.WishlistUser),
		wishes:    make(map[uuid.UUID]*models.Wish),
	}
}

// ---------------------------------------------------------------------------
// Wishlists
// ---------------------------------------------------------------------------

// Wishlists returns the wishlist repository view of the store.
func (s *Store) Wishlists() *WishlistRepo { return &WishlistRepo{s: s} }

// WishlistRepo implements repository.WishlistRepository.
type WishlistRepo struct{ s *Store }

func (r *WishlistRepo) Create(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if wishlist.ID == uuid.Nil {
		wishlist.ID = uuid.New()
	}
	now := time.Now()
	wishlist.CreatedAt = now
	wishlist.UpdatedAt = now

	cp := *wishlist
	r.s.wishlists[wishlist.ID] = &cp
	return wishlist, nil
}

func (r *WishlistRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wishlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.wishlists[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *WishlistRepo) Update(ctx context.Context, wishlist *models.Wishlist) (*models.Wishlist, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wishlists[wishlist.ID]; !ok {
		return nil, nil
	}
	wishlist.UpdatedAt = time.Now()
	cp := *wishlist
	r.s.wishlists[wishlist.ID] = &cp
	return wishlist, nil
}

// ---------------------------------------------------------------------------
// Members
// ---------------------------------------------------------------------------

// Users returns the member repository view of the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// UserRepo implements repository.UserRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, user *models.WishlistUser) (*models.WishlistUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	r.s.users[user.ID] = &cp
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WishlistUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *UserRepo) Update(ctx context.Context, user *models.WishlistUser) (*models.WishlistUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[user.ID]
	if !ok {
		return nil, nil
	}
	user.CreatedAt = stored.CreatedAt
	user.UpdatedAt = time.Now()
	cp := *user
	r.s.users[user.ID] = &cp
	return user, nil
}

func (r *UserRepo) ListByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error) {
	return r.list(wishlistID, false)
}

func (r *UserRepo) ListActiveByWishlist(ctx context.Context, wishlistID uuid.UUID) ([]*models.WishlistUser, error) {
	return r.list(wishlistID, true)
}

func (r *UserRepo) list(wishlistID uuid.UUID, activeOnly bool) ([]*models.WishlistUser, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var users []*models.WishlistUser
	for _, u := range r.s.users {
		if u.WishlistID != wishlistID {
			continue
		}
		if activeOnly && !u.IsActive {
			continue
		}
		cp := *u
		users = append(users, &cp)
	}

	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Name != users[j].Name {
			return users[i].Name < users[j].Name
		}
		if !activeOnly && users[i].IsActive != users[j].IsActive {
			return users[i].IsActive
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// ---------------------------------------------------------------------------
// Wishes
// ---------------------------------------------------------------------------

// Wishes returns the wish repository view of the store.
func (s *Store) Wishes() *WishRepo { return &WishRepo{s: s} }

// WishRepo implements repository.WishRepository.
type WishRepo struct{ s *Store }

func (r *WishRepo) Create(ctx context.Context, wish *models.Wish) (*models.Wish, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if wish.ID == uuid.Nil {
		wish.ID = uuid.New()
	}
	now := time.Now()
	wish.CreatedAt = now
	wish.UpdatedAt = now

	cp := *wish
	r.s.wishes[wish.ID] = &cp
	return wish, nil
}

func (r *WishRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Wish, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.wishes[id]
	if !ok {
		return nil, nil
	}
	cp := *stored
	return &cp, nil
}

func (r *WishRepo) Update(ctx context.Context, wish *models.Wish) (*models.Wish, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.wishes[wish.ID]
	if !ok {
		return nil, nil
	}
	// The claim is only written through SetClaim.
	wish.ClaimedByID = stored.ClaimedByID
	wish.CreatedAt = stored.CreatedAt
	wish.UpdatedAt = time.Now()
	cp := *wish
	r.s.wishes[wish.ID] = &cp
	return wish, nil
}

func (r *WishRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wishes[id]; !ok {
		return fmt.Errorf("wish %s not found", id)
	}
	delete(r.s.wishes, id)
	return nil
}

func (r *WishRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Wish, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var wishes []*models.Wish
	for _, w := range r.s.wishes {
		if w.OwnerID != ownerID {
			continue
		}
		cp := *w
		wishes = append(wishes, &cp)
	}

	sort.SliceStable(wishes, func(i, j int) bool {
		return wishes[i].CreatedAt.Before(wishes[j].CreatedAt)
	})

	return wishes, nil
}

func (r *WishRepo) SetClaim(ctx context.Context, id uuid.UUID, expected, next *uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.wishes[id]
	if !ok {
		return false, nil
	}

	switch {
	case expected == nil && stored.ClaimedByID != nil:
		return false, nil
	case expected != nil && (stored.ClaimedByID == nil || *stored.ClaimedByID != *expected):
		return false, nil
	}

	if next == nil {
		stored.ClaimedByID = nil
	} else {
		claimant := *next
		stored.ClaimedByID = &claimant
	}
	stored.UpdatedAt = time.Now()
	return true, nil
}
