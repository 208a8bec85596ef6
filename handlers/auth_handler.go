package handlers

import (
	"context"
	"net/http"

	"pinpoint-server/middleware"
	"pinpoint-server/models"
	"pinpoint-server/services"
	"pinpoint-server/utils/errors"
)

// Registrar creates password accounts.
type Registrar interface {
	Register(ctx context.Context, username, email, password string) (string, error)
}

type AuthHandler struct {
	registrar Registrar
}

type SessionResponse struct {
	SignedIn  bool                      `json:"signed_in"`
	Identity  *models.Identity          `json:"identity,omitempty"`
	Token     string                    `json:"token,omitempty"`
	Providers []models.ProviderKind     `json:"providers"`
	Status    services.ControllerStatus `json:"status"`
}

func NewAuthHandler(registrar Registrar) *AuthHandler {
	return &AuthHandler{registrar: registrar}
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &input); err != nil {
		middleware.WriteError(w, err)
		return
	}

	userID, err := h.registrar.Register(r.Context(), input.Username, input.Email, input.Password)
	if err != nil {
		middleware.WriteError(w, errors.Wrap(err, "REGISTRATION_ERROR", "Failed to register user", http.StatusInternalServerError))
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"userID": userID})
}

// LoginUser signs the workspace in. The marker list follows the new identity
// before the response is written.
func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	var creds services.Credentials
	if err := decodeJSON(r, &creds); err != nil {
		middleware.WriteError(w, err)
		return
	}
	if creds.Provider == "" {
		creds.Provider = models.ProviderPassword
	}

	if _, err := sh.Session().SignIn(r.Context(), creds); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse(sh))
}

// LogoutUser signs the workspace out. The local session is cleared even when
// the token could not be revoked, in which case LOGOUT_FAILED is returned.
func (h *AuthHandler) LogoutUser(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	if err := sh.Session().SignOut(r.Context()); err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse(sh))
}

func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sh, ok := currentShell(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionResponse(sh))
}

func sessionResponse(sh *services.Shell) SessionResponse {
	session := sh.Session()
	id := session.Identity()
	return SessionResponse{
		SignedIn:  id != nil,
		Identity:  id,
		Token:     session.Token(),
		Providers: session.Providers(),
		Status:    sh.Controller().Status(),
	}
}
