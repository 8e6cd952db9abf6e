package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishSync/internal/errs"
	"github.com/Kerhoff/WishSync/internal/metrics"
	"github.com/Kerhoff/WishSync/internal/presence"
	"github.com/Kerhoff/WishSync/internal/service"
)

const dispatchTimeout = 10 * time.Second

// Gateway is the websocket endpoint: it authenticates the connecting member,
// parses inbound envelopes, dispatches them to the service and broadcasts
// the results to the member's room.
//
// Broadcasts are not visibility-filtered per recipient: an owner's
// connection does receive the raw event when someone suggests or edits a
// wish for them. Only the full-list projection hides suggested wishes from
// their owner. This mirrors the historical behavior; see DESIGN.md.
type Gateway struct {
	svc      *service.Service
	hub      *Hub
	presence presence.Registry
	logger   *logrus.Logger

	upgrader websocket.Upgrader
}

// NewGateway creates a Gateway using the given hub and presence registry.
func NewGateway(svc *service.Service, hub *Hub, registry presence.Registry, logger *logrus.Logger) *Gateway {
	return &Gateway{
		svc:      svc,
		hub:      hub,
		presence: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The member id in the URL is the credential; origin checks are
			// left to the deployment's proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades `GET /ws/{userId}` connections. An unknown member id is
// refused with a structured close reason and never joins a room.
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debugf("Websocket upgrade failed: %v", err)
		return
	}

	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		g.refuse(conn, "User not found")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), dispatchTimeout)
	user, err := g.svc.GetMember(ctx, userID)
	cancel()
	if err != nil {
		g.refuse(conn, "User not found")
		return
	}

	client := newClient(user, user.WishlistID.String(), conn, g.logger)
	g.hub.Join(client)
	metrics.ConnectionOpened()

	// Announce the arrival with the room's current member names.
	if names, err := g.presence.Heartbeat(context.Background(), client.roomID, user.Name); err != nil {
		g.logger.Errorf("Presence heartbeat failed: %v", err)
	} else {
		g.hub.Broadcast(client.roomID, Outbound{
			Type:      TypeMemberConnected,
			Action:    TypeMemberConnected,
			UserToken: user.Name,
			Data:      names,
		})
	}

	go client.writePump()
	go func() {
		client.readPump(g.dispatch)
		g.disconnect(client)
	}()
}

func (g *Gateway) refuse(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}

func (g *Gateway) disconnect(client *Client) {
	g.hub.Leave(client)
	metrics.ConnectionClosed()

	names, err := g.presence.Remove(context.Background(), client.roomID, client.user.Name)
	if err != nil {
		g.logger.Errorf("Presence removal failed: %v", err)
		return
	}
	g.hub.Broadcast(client.roomID, Outbound{
		Type:      TypeMemberDisconnect,
		Action:    TypeMemberDisconnect,
		UserToken: client.user.Name,
		Data:      names,
	})
}

// dispatch routes one inbound envelope. Validation and authorization
// failures become individual error replies; they are never broadcast and
// never terminate the connection.
func (g *Gateway) dispatch(client *Client, raw []byte) {
	var envelope Inbound
	if err := json.Unmarshal(raw, &envelope); err != nil {
		client.enqueue(errorMessage("Invalid payload"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	var err error
	switch envelope.Type {
	case ActionCreateWish:
		err = g.handleCreate(ctx, client, envelope)
	case ActionUpdateWish:
		err = g.handleUpdate(ctx, client, envelope)
	case ActionDeleteWish:
		err = g.handleDelete(ctx, client, envelope)
	default:
		client.enqueue(errorMessage("Invalid action"))
		return
	}

	if err != nil {
		metrics.MutationObserved(envelope.Type, metrics.StatusLabel(err))
		switch {
		case errs.IsValidation(err), errs.IsNotFound(err), errs.IsForbidden(err):
			client.enqueue(errorMessage(err.Error()))
		default:
			g.logger.WithField("type", envelope.Type).Errorf("Dispatch failed: %v", err)
			client.enqueue(errorMessage("Internal error"))
		}
		return
	}
	metrics.MutationObserved(envelope.Type, "ok")
}

func (g *Gateway) handleCreate(ctx context.Context, client *Client, envelope Inbound) error {
	var in service.WishCreate
	if len(envelope.PostValues) > 0 {
		if err := json.Unmarshal(envelope.PostValues, &in); err != nil {
			return errs.NewFieldValidation("Wish", "", "Invalid wish payload")
		}
	}

	wish, err := g.svc.CreateWish(ctx, client.user, in)
	if err != nil {
		return err
	}

	view, ownerName, err := g.svc.ProjectWish(ctx, wish)
	if err != nil {
		return err
	}

	g.hub.Broadcast(client.roomID, NewCreateEvent(client.user.Name, ownerName, view))
	return nil
}

func (g *Gateway) handleUpdate(ctx context.Context, client *Client, envelope Inbound) error {
	if envelope.ObjectID == nil {
		return errs.NewFieldValidation("Wish", "objectId", "objectId is required")
	}

	var fields map[string]json.RawMessage
	if len(envelope.PostValues) > 0 {
		if err := json.Unmarshal(envelope.PostValues, &fields); err != nil {
			return errs.NewFieldValidation("Wish", "", "Invalid wish payload")
		}
	}
	upd, err := service.DecodeWishUpdate(fields)
	if err != nil {
		return err
	}

	result, err := g.svc.UpdateWish(ctx, client.user, *envelope.ObjectID, upd)
	if err != nil {
		return err
	}

	view, ownerName, err := g.svc.ProjectWish(ctx, result.Wish)
	if err != nil {
		return err
	}

	// Releasing the claim of a soft-deleted wish purged it: the room is
	// told about a deletion, there is no wish left to project.
	if result.Purged {
		g.hub.Broadcast(client.roomID, NewPurgeEvent(client.user.Name, ownerName, result.Wish.ID, nil))
		return nil
	}

	g.hub.Broadcast(client.roomID, NewUpdateEvent(client.user.Name, ownerName, view, result.ClaimChanged))
	return nil
}

func (g *Gateway) handleDelete(ctx context.Context, client *Client, envelope Inbound) error {
	if envelope.ObjectID == nil {
		return errs.NewFieldValidation("Wish", "objectId", "objectId is required")
	}

	wish, purged, err := g.svc.DeleteWish(ctx, client.user, *envelope.ObjectID)
	if err != nil {
		return err
	}

	view, ownerName, err := g.svc.ProjectWish(ctx, wish)
	if err != nil {
		return err
	}

	if purged {
		g.hub.Broadcast(client.roomID, NewPurgeEvent(client.user.Name, ownerName, wish.ID, view.AssignedUser))
		return nil
	}

	// Soft-deleted: the wish survives for its claimant, broadcast the full
	// view carrying the deleted flag.
	g.hub.Broadcast(client.roomID, NewSoftDeleteEvent(client.user.Name, ownerName, view))
	return nil
}
