package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/models"
	"clinichistory/internal/security"
	"clinichistory/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService     *service.AuthService
	recoveryService *service.RecoveryService
	signer          *security.CookieSigner
	csrf            *security.CSRFGenerator
	production      bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, recoveryService *service.RecoveryService, signer *security.CookieSigner, csrf *security.CSRFGenerator, production bool) *AuthHandler {
	return &AuthHandler{
		authService:     authService,
		recoveryService: recoveryService,
		signer:          signer,
		csrf:            csrf,
		production:      production,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type sessionResponse struct {
	Message   string              `json:"message,omitempty"`
	User      *models.SessionUser `json:"user,omitempty"`
	Demo      bool                `json:"demo,omitempty"`
	CSRFToken string              `json:"csrf_token,omitempty"`
}

type verifyResponse struct {
	Authenticated bool                `json:"authenticated"`
	User          *models.SessionUser `json:"user,omitempty"`
	Demo          bool                `json:"demo,omitempty"`
	CSRFToken     string              `json:"csrf_token,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	Demo    bool   `json:"demo,omitempty"`
}

// Login authenticates and issues a new session cookie. The session is
// already persisted when the response is written.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	sess, err := h.authService.Login(r.Context(), req.Email, req.Password, req.Remember, getSessionIDFromContext(r.Context()))
	if err != nil {
		respondAppError(w, err)
		return
	}

	value, err := h.signer.Sign(sess.ID, sess.ExpiresAt)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to sign session cookie", err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, SessionCookieName, value, sess.MaxAge(), h.production))

	demo := h.authService.IsDemo(sess.User.Email)
	if demo {
		w.Header().Set(DemoModeHeader, "true")
	}
	user := sess.User
	respondJSON(w, http.StatusOK, sessionResponse{
		Message:   "Login successful",
		User:      &user,
		Demo:      demo,
		CSRFToken: h.csrf.Token(sess.ID),
	})
}

// Logout destroys the session and always tells the client to drop its cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.CreateDeleteCookie(r, SessionCookieName, h.production))

	if err := h.authService.Logout(r.Context(), GetIdentityFromContext(r.Context()), getSessionIDFromContext(r.Context())); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

// Verify reports whether the request carries a live session
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	switch id := GetIdentityFromContext(r.Context()).(type) {
	case models.Authenticated:
		user := id.User()
		if id.Demo {
			w.Header().Set(DemoModeHeader, "true")
		}
		respondJSON(w, http.StatusOK, verifyResponse{
			Authenticated: true,
			User:          &user,
			Demo:          id.Demo,
			CSRFToken:     h.csrf.Token(id.Session.ID),
		})
	default:
		respondJSON(w, http.StatusOK, verifyResponse{Authenticated: false})
	}
}

type registerRequest struct {
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Register creates a staff account. Routed behind RequireSession and
// RequireRole(admin). Demo admins get a simulated result.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}

	if id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated); ok && id.Demo {
		user, err := h.authService.ValidateRegistration(req.Email, req.FullName, req.Password, req.Role)
		if err != nil {
			respondAppError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, sessionResponse{
			Message: "User created (demo mode, changes are temporary)",
			User:    &user,
			Demo:    true,
		})
		return
	}

	created, err := h.authService.Register(r.Context(), req.Email, req.FullName, req.Password, req.Role)
	if err != nil {
		respondAppError(w, err)
		return
	}
	user := created.Snapshot()
	respondJSON(w, http.StatusCreated, sessionResponse{Message: "User created", User: &user})
}

type recoverRequest struct {
	Email string `json:"email"`
}

// Recover issues a recovery code for an email
func (h *AuthHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req recoverRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}
	if err := h.recoveryService.RequestReset(r.Context(), req.Email); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Recovery code sent"})
}

type resetRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

// Reset sets a new password using a recovery code
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}
	demo, err := h.recoveryService.ResetWithCode(r.Context(), req.Email, req.Code, req.Password)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if demo {
		w.Header().Set(DemoModeHeader, "true")
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Password reset", Demo: demo})
}

// Profile returns the current user
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	user, err := h.authService.Profile(r.Context(), id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{User: &user, Demo: id.Demo, CSRFToken: h.csrf.Token(id.Session.ID)})
}

type profileRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// UpdateProfile changes the current user's email and name
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}
	user, err := h.authService.UpdateProfile(r.Context(), id, req.Email, req.FullName)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{Message: "Profile updated", User: &user, Demo: id.Demo})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := GetIdentityFromContext(r.Context()).(models.Authenticated)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrUnauthorized, "", nil)
		return
	}
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, err)
		return
	}
	if err := h.authService.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		respondAppError(w, err)
		return
	}
	if id.Demo {
		log.Debug().Int64("user_id", id.Session.UserID).Msg("Demo password change not persisted")
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "Password updated", Demo: id.Demo})
}
