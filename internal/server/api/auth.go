package api

import (
	"net/http"

	"github.com/kamikazebr/license-gateway/internal/server/services"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, resp)
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondOK(w, http.StatusCreated, resp)
}

// CurrentUser returns the signed-in account.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondOK(w, http.StatusOK, services.AuthUserResponse(user))
}

// SignOut is a no-op for stateless sessions; clients drop the token.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.ConsoleResponse{Success: true, Message: "signed out"})
}
