package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Kerhoff/WishSync/internal/service"
)

// Inbound action types accepted from clients.
const (
	ActionCreateWish = "create_wish"
	ActionUpdateWish = "update_wish"
	ActionDeleteWish = "delete_wish"
	// ActionChangeAssigned is broadcast-only: emitted in place of
	// update_wish when the mutation changed the wish's claim.
	ActionChangeAssigned = "change_wish_assigned_user"
)

// Outbound message types.
const (
	TypeUpdatedWish      = "updated_wish"
	TypeErrorMessage     = "error_message"
	TypeMemberConnected  = "new_group_member_connection"
	TypeMemberDisconnect = "group_member_disconnected"
)

// Inbound is the envelope clients send over the websocket. CurrentUser is
// accepted for compatibility but the authenticated connection identity is
// authoritative.
type Inbound struct {
	Type        string          `json:"type"`
	CurrentUser uuid.UUID       `json:"currentUser"`
	ObjectID    *uuid.UUID      `json:"objectId"`
	PostValues  json.RawMessage `json:"postValues"`
}

// Outbound is the envelope sent to clients, individually or as a room
// broadcast. UserToken carries the acting member's display name as a
// correlation token.
type Outbound struct {
	Type      string      `json:"type"`
	Action    string      `json:"action,omitempty"`
	UserToken string      `json:"userToken,omitempty"`
	Data      interface{} `json:"data"`
}

// WishEventData is the broadcast payload for create/update events: the full
// updated wish view plus its owning member's name. Broadcast content is
// identical for every recipient; per-recipient filtering only applies to
// full-list projections, not to single-wish event notifications.
type WishEventData struct {
	User string           `json:"user"`
	Wish service.WishView `json:"wish"`
}

// DeletedWishEventData is the compact payload for terminal deletions, where
// no wish object remains to project.
type DeletedWishEventData struct {
	User         string    `json:"user"`
	WishID       uuid.UUID `json:"wishId"`
	AssignedUser *string   `json:"assignedUser"`
}

func errorMessage(text string) Outbound {
	return Outbound{Type: TypeErrorMessage, Data: text}
}

// NewCreateEvent builds the broadcast for a created wish.
func NewCreateEvent(actor, ownerName string, view service.WishView) Outbound {
	return Outbound{
		Type:      TypeUpdatedWish,
		Action:    ActionCreateWish,
		UserToken: actor,
		Data:      WishEventData{User: ownerName, Wish: view},
	}
}

// NewUpdateEvent builds the broadcast for an updated wish. When the update
// changed the claim the action becomes change_wish_assigned_user.
func NewUpdateEvent(actor, ownerName string, view service.WishView, claimChanged bool) Outbound {
	action := ActionUpdateWish
	if claimChanged {
		action = ActionChangeAssigned
	}
	return Outbound{
		Type:      TypeUpdatedWish,
		Action:    action,
		UserToken: actor,
		Data:      WishEventData{User: ownerName, Wish: view},
	}
}

// NewSoftDeleteEvent builds the broadcast for a soft-deleted wish, which
// still exists and carries its deleted flag in the full view.
func NewSoftDeleteEvent(actor, ownerName string, view service.WishView) Outbound {
	return Outbound{
		Type:      TypeUpdatedWish,
		Action:    ActionDeleteWish,
		UserToken: actor,
		Data:      WishEventData{User: ownerName, Wish: view},
	}
}

// NewPurgeEvent builds the compact broadcast for a terminal deletion, where
// no wish object remains to project.
func NewPurgeEvent(actor, ownerName string, wishID uuid.UUID, assignedUser *string) Outbound {
	return Outbound{
		Type:      TypeUpdatedWish,
		Action:    ActionDeleteWish,
		UserToken: actor,
		Data: DeletedWishEventData{
			User:         ownerName,
			WishID:       wishID,
			AssignedUser: assignedUser,
		},
	}
}
