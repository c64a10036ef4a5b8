package user

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-registry/internal/api"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	ListUsers(w http.ResponseWriter, r *http.Request)
	CreateUser(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	ReplaceUser(w http.ResponseWriter, r *http.Request)
	PatchUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers returns every user record. Password hashes are excluded by the
// record's JSON shape.
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListUsers"))

	users, err := h.userService.ListUsers(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// CreateUser creates a new user from a JSON field set.
func (h *HandlerImpl) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateUser"))

	var fields map[string]any
	if err := api.DecodeJSONBody(w, r, &fields); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.userService.CreateUser(ctx, fields)
	if err != nil {
		h.writeUserError(w, r, l, err, "Failed to create user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, created)
}

// GetUser returns a single user by id.
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUser"))

	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	u, err := h.userService.GetUser(ctx, userID)
	if err != nil {
		h.writeUserError(w, r, l, err, "Failed to retrieve user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// ReplaceUser fully replaces a user record (PUT semantics).
func (h *HandlerImpl) ReplaceUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ReplaceUser"))

	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	var fields map[string]any
	if err := api.DecodeJSONBody(w, r, &fields); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.userService.ReplaceUser(ctx, userID, fields)
	if err != nil {
		h.writeUserError(w, r, l, err, "Failed to replace user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// PatchUser partially updates a user record (PATCH semantics).
func (h *HandlerImpl) PatchUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "PatchUser"))

	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	var fields map[string]any
	if err := api.DecodeJSONBody(w, r, &fields); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.userService.PatchUser(ctx, userID, fields)
	if err != nil {
		h.writeUserError(w, r, l, err, "Failed to patch user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// DeleteUser removes a user record.
func (h *HandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteUser"))

	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(ctx, userID); err != nil {
		h.writeUserError(w, r, l, err, "Failed to delete user")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *HandlerImpl) parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *HandlerImpl) writeUserError(w http.ResponseWriter, r *http.Request, l *slog.Logger, err error, fallback string) {
	ctx := r.Context()
	if ve, ok := api.AsValidationError(err); ok {
		l.WarnContext(ctx, "Request failed validation", slog.Any("error", err))
		api.ValidationErrorResponse(w, r, ve)
		return
	}
	switch {
	case errors.Is(err, api.ErrNotFound):
		l.WarnContext(ctx, "User not found", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, api.ErrConflict):
		l.WarnContext(ctx, "Email conflict", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusConflict, "Email already in use")
	default:
		l.ErrorContext(ctx, fallback, slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fallback)
	}
}
