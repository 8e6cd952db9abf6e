// Package service is the business logic core: wish mutations with their
// authorization and claim-transition rules, the per-viewer projection of a
// wishlist, and wishlist/member management.
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishSync/internal/repository"
)

// Notifier receives out-of-band announcements for events that are safe to
// show to the whole group. Claim events are deliberately not part of this
// interface: announcing them anywhere the owner can read would spoil the
// surprise.
type Notifier interface {
	WishCreated(ownerName, wishName string)
	MemberJoined(memberName string)
}

type noopNotifier struct{}

func (noopNotifier) WishCreated(string, string) {}
func (noopNotifier) MemberJoined(string)        {}

// Service holds the repositories and provides the high-level operations used
// by both the REST API and the realtime gateway.
type Service struct {
	logger   *logrus.Logger
	notifier Notifier

	Wishlists repository.WishlistRepository
	Users     repository.UserRepository
	Wishes    repository.WishRepository
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger,
	wishlists repository.WishlistRepository,
	users repository.UserRepository,
	wishes repository.WishRepository,
) *Service {
	return &Service{
		logger:    logger,
		notifier:  noopNotifier{},
		Wishlists: wishlists,
		Users:     users,
		Wishes:    wishes,
	}
}

// SetNotifier installs an optional event announcer.
func (s *Service) SetNotifier(n Notifier) {
	if n != nil {
		s.notifier = n
	}
}
