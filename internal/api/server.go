// Package api provides the stateless request/response surface. It offers
// the same mutation and query operations as the realtime gateway; successful
// wish mutations are broadcast to the wishlist's room so connected clients
// stay consistent regardless of which surface performed the change.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/WishSync/internal/errs"
	"github.com/Kerhoff/WishSync/internal/metrics"
	"github.com/Kerhoff/WishSync/internal/models"
	"github.com/Kerhoff/WishSync/internal/realtime"
	"github.com/Kerhoff/WishSync/internal/service"
)

// Server provides the HTTP API.
type Server struct {
	svc    *service.Service
	hub    *realtime.Hub
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it. gateway
// may be nil in tests that do not exercise the websocket endpoint.
func NewServer(svc *service.Service, hub *realtime.Hub, gateway *realtime.Gateway, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, hub: hub, logger: logger, mux: http.NewServeMux()}
	s.routes(gateway)
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes(gateway *realtime.Gateway) {
	// Wishlist
	s.mux.HandleFunc("PUT /api/wishlist", s.handleCreateWishlist)
	s.mux.HandleFunc("GET /api/wishlist", s.handleGetWishlist)
	s.mux.HandleFunc("POST /api/wishlist", s.handleUpdateWishlist)

	// Members
	s.mux.HandleFunc("GET /api/wishlist/users", s.handleGetUsers)
	s.mux.HandleFunc("POST /api/wishlist/users", s.handleCreateUser)
	s.mux.HandleFunc("POST /api/wishlist/users/{id}", s.handleRenameUser)
	s.mux.HandleFunc("POST /api/wishlist/users/{id}/deactivate", s.handleDeactivateUser)
	s.mux.HandleFunc("POST /api/wishlist/users/{id}/activate", s.handleActivateUser)

	// Onboarding: list a wishlist's members for identity selection, before
	// the caller has any credential.
	s.mux.HandleFunc("GET /api/wishlist/{wishlistId}/users", s.handleOnboardingUsers)

	// Wishes
	s.mux.HandleFunc("PUT /api/wish", s.handleCreateWish)
	s.mux.HandleFunc("POST /api/wish/{id}", s.handleUpdateWish)
	s.mux.HandleFunc("DELETE /api/wish/{id}", s.handleDeleteWish)

	// Realtime + operational endpoints
	if gateway != nil {
		s.mux.HandleFunc("GET /ws/{userId}", gateway.ServeWS)
	}
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]any{
		"error": map[string]string{"message": message},
	})
}

// respondFailure maps a service error onto the error taxonomy: validation
// failures are 400, admin-only denials 403, missing entities 404 and
// everything else a generic 500 without internals.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errs.IsForbidden(err):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errs.IsValidation(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		s.respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure. The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value as a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s in path", name)
	}
	return uuid.Parse(raw)
}

// requireUser resolves the caller from the bearer token, which carries the
// member's identity. It writes an error response and returns false when the
// credential is absent or unknown.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (*models.WishlistUser, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		s.respondError(w, http.StatusUnauthorized, "Authorization required")
		return nil, false
	}

	userID, err := uuid.Parse(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}

	user, err := s.svc.GetMember(r.Context(), userID)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "User not found")
		return nil, false
	}
	return user, true
}

// ---------------------------------------------------------------------------
// Wishlist handlers
// ---------------------------------------------------------------------------

func (s *Server) handleCreateWishlist(w http.ResponseWriter, r *http.Request) {
	var payload service.WishlistInit
	if ok, msg := s.decodeJSON(r, &payload); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	wishlist, members, err := s.svc.CreateWishlist(r.Context(), payload)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"wishListId": wishlist.ID,
		"users":      members,
	})
}

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	wishlist, err := s.svc.GetWishlist(r.Context(), user.WishlistID)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	view, err := s.svc.Project(r.Context(), wishlist, user)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateWishlist(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var payload service.WishlistSettings
	if ok, msg := s.decodeJSON(r, &payload); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	wishlist, err := s.svc.UpdateWishlist(r.Context(), user, payload)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"wishList": wishlist.ID})
}

// ---------------------------------------------------------------------------
// Member handlers
// ---------------------------------------------------------------------------

// memberView is the camelCase wire representation of a member.
type memberView struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	IsAdmin  bool      `json:"isAdmin"`
	IsActive bool      `json:"isActive"`
}

func newMemberViews(members []*models.WishlistUser) []memberView {
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		views = append(views, memberView{
			ID:       m.ID,
			Name:     m.Name,
			IsAdmin:  m.IsAdmin,
			IsActive: m.IsActive,
		})
	}
	return views
}

func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	members, err := s.svc.ListMembers(r.Context(), user.WishlistID)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newMemberViews(members))
}

func (s *Server) handleOnboardingUsers(w http.ResponseWriter, r *http.Request) {
	wishlistID, err := pathID(r, "wishlistId")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid wishlist id")
		return
	}

	// Resolve the wishlist first so an unknown id is a 404, not an empty list.
	if _, err := s.svc.GetWishlist(r.Context(), wishlistID); err != nil {
		s.respondFailure(w, err)
		return
	}

	members, err := s.svc.ListMembers(r.Context(), wishlistID)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newMemberViews(members))
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if ok, msg := s.decodeJSON(r, &payload); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := s.svc.CreateMember(r.Context(), user, payload.Name)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"user": member.ID})
}

func (s *Server) handleRenameUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	memberID, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if ok, msg := s.decodeJSON(r, &payload); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	member, err := s.svc.RenameMember(r.Context(), user, memberID, payload.Name)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"user": member.ID})
}

func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	s.handleMemberToggle(w, r, s.svc.DeactivateMember)
}

func (s *Server) handleActivateUser(w http.ResponseWriter, r *http.Request) {
	s.handleMemberToggle(w, r, s.svc.ActivateMember)
}

func (s *Server) handleMemberToggle(w http.ResponseWriter, r *http.Request,
	toggle func(ctx context.Context, requester *models.WishlistUser, memberID uuid.UUID) (*models.WishlistUser, error),
) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	memberID, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	member, err := toggle(r.Context(), user, memberID)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"user": member.ID})
}

// ---------------------------------------------------------------------------
// Wish handlers
// ---------------------------------------------------------------------------

func (s *Server) handleCreateWish(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var payload service.WishCreate
	if ok, msg := s.decodeJSON(r, &payload); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	wish, err := s.svc.CreateWish(r.Context(), user, payload)
	if err != nil {
		metrics.MutationObserved(realtime.ActionCreateWish, metrics.StatusLabel(err))
		s.respondFailure(w, err)
		return
	}
	metrics.MutationObserved(realtime.ActionCreateWish, "ok")

	if view, ownerName, err := s.svc.ProjectWish(r.Context(), wish); err == nil {
		s.broadcast(user, realtime.NewCreateEvent(user.Name, ownerName, view))
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"wish": wish.ID})
}

func (s *Server) handleUpdateWish(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	wishID, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid wish id")
		return
	}

	var fields map[string]json.RawMessage
	if ok, msg := s.decodeJSON(r, &fields); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	upd, err := service.DecodeWishUpdate(fields)
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	result, err := s.svc.UpdateWish(r.Context(), user, wishID, upd)
	if err != nil {
		metrics.MutationObserved(realtime.ActionUpdateWish, metrics.StatusLabel(err))
		s.respondFailure(w, err)
		return
	}
	metrics.MutationObserved(realtime.ActionUpdateWish, "ok")

	if view, ownerName, perr := s.svc.ProjectWish(r.Context(), result.Wish); perr == nil {
		if result.Purged {
			s.broadcast(user, realtime.NewPurgeEvent(user.Name, ownerName, result.Wish.ID, nil))
		} else {
			s.broadcast(user, realtime.NewUpdateEvent(user.Name, ownerName, view, result.ClaimChanged))
		}
	}

	s.respondJSON(w, http.StatusCreated, map[string]any{"wish": result.Wish.ID})
}

func (s *Server) handleDeleteWish(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	wishID, err := pathID(r, "id")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid wish id")
		return
	}

	wish, purged, err := s.svc.DeleteWish(r.Context(), user, wishID)
	if err != nil {
		metrics.MutationObserved(realtime.ActionDeleteWish, metrics.StatusLabel(err))
		s.respondFailure(w, err)
		return
	}
	metrics.MutationObserved(realtime.ActionDeleteWish, "ok")

	if view, ownerName, perr := s.svc.ProjectWish(r.Context(), wish); perr == nil {
		if purged {
			s.broadcast(user, realtime.NewPurgeEvent(user.Name, ownerName, wish.ID, view.AssignedUser))
		} else {
			s.broadcast(user, realtime.NewSoftDeleteEvent(user.Name, ownerName, view))
		}
	}

	w.WriteHeader(http.StatusOK)
}

// broadcast fans a REST-originated mutation out to the member's room.
func (s *Server) broadcast(user *models.WishlistUser, msg realtime.Outbound) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(user.WishlistID.String(), msg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
