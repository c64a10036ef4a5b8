package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-user-registry/internal/api"
)

type AuthHandler struct {
	verifyService VerifyService
	logger        *slog.Logger
}

func NewAuthHandler(verifyService VerifyService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		verifyService: verifyService,
		logger:        logger,
	}
}

// VerifyPassword checks a credential for the internal auth service.
// Responses: 200 {valid:true,user_id,company_id}, 404 {valid:false} for an
// unknown email, 401 {valid:false} for a wrong password. The response body
// is the same for both failures; only the status differs, matching what the
// auth service expects.
func (h *AuthHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "VerifyPassword"))

	var req api.VerifyPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Email == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing email or password")
		return
	}

	result, err := h.verifyService.VerifyUserPassword(ctx, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrNotFound):
			api.WriteJSONResponse(w, r, http.StatusNotFound, map[string]bool{"valid": false})
		case errors.Is(err, api.ErrUnauthenticated):
			api.WriteJSONResponse(w, r, http.StatusUnauthorized, map[string]bool{"valid": false})
		default:
			l.ErrorContext(ctx, "Password verification failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, result)
}
