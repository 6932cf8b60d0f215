package rest

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/legido/auth-backend/internal/auth"
	"github.com/legido/auth-backend/internal/service"
)

// refreshCookieName is the HTTP-only cookie carrying the refresh token. The
// access token travels in the JSON body and is presented back as a Bearer
// header; the refresh token never touches script-visible storage.
const refreshCookieName = "refresh_token"

// AuthHandler handles /api/v1/auth/*.
type AuthHandler struct {
	svc        service.AuthService
	refreshTTL time.Duration
}

// NewAuthHandler creates an auth handler. refreshTTL bounds the cookie
// lifetime to the refresh token lifetime.
func NewAuthHandler(svc service.AuthService, refreshTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, refreshTTL: refreshTTL}
}

// RegisterRoutes registers auth routes on the given router (expect path prefix
// /api/v1 already applied). requireAuth guards the endpoints that need a valid
// access token.
func (h *AuthHandler) RegisterRoutes(router *mux.Router, requireAuth func(http.Handler) http.Handler) {
	router.HandleFunc("/auth/register", h.Register).Methods("POST")
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
	router.HandleFunc("/auth/two-factor", h.TwoFactor).Methods("POST")
	router.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	router.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	router.HandleFunc("/auth/forgot-password", h.ForgotPassword).Methods("POST")
	router.HandleFunc("/auth/reset-password", h.ResetPassword).Methods("POST")
	router.HandleFunc("/auth/google", h.GoogleLogin).Methods("POST")
	router.Handle("/auth/me", requireAuth(http.HandlerFunc(h.Me))).Methods("GET")
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response for POST /auth/login. Secret and OTPAuthURL
// are present only when the account still has to enroll an authenticator.
type LoginResponse struct {
	ID         string `json:"id"`
	Secret     string `json:"secret,omitempty"`
	OTPAuthURL string `json:"otpauth_url,omitempty"`
}

// TwoFactorRequest is the body for POST /auth/two-factor. Secret echoes the
// value handed out by login during enrollment; enrolled accounts omit it.
type TwoFactorRequest struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Secret string `json:"secret,omitempty"`
}

// TokenResponse carries a freshly issued access token.
type TokenResponse struct {
	Token string `json:"token"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.svc.Register(r.Context(), req.FirstName, req.LastName, req.Email, req.Password, req.PasswordConfirm)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login handles POST /auth/login: the password stage. A successful response
// never includes tokens; the client must follow up on /auth/two-factor.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		ID:         result.UserID,
		Secret:     result.Secret,
		OTPAuthURL: result.OTPAuthURL,
	})
}

// TwoFactor handles POST /auth/two-factor: the TOTP stage. On success the
// access token is returned in the body and the refresh token is set as an
// HTTP-only cookie.
func (h *AuthHandler) TwoFactor(w http.ResponseWriter, r *http.Request) {
	var req TwoFactorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.svc.VerifyTwoFactor(r.Context(), req.ID, req.Code, req.Secret)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	respondJSON(w, http.StatusOK, TokenResponse{Token: pair.AccessToken})
}

// Me handles GET /auth/me. Requires the auth middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// Refresh handles POST /auth/refresh: exchanges the cookie's refresh token
// for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	access, err := h.svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TokenResponse{Token: access})
}

// Logout handles POST /auth/logout. Always succeeds: the refresh token record
// is deleted if present and the cookie is cleared either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		if err := h.svc.Logout(r.Context(), cookie.Value); err != nil {
			log.Printf("[AUTH] logout: %v", err)
		}
	}

	h.clearRefreshCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// ForgotPassword handles POST /auth/forgot-password. The response is the same
// whether or not the email has an account, so the endpoint cannot be used to
// enumerate users.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email != "" {
		if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
			log.Printf("[AUTH] forgot-password: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.Password, req.PasswordConfirm); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// GoogleLogin handles POST /auth/google: federated login with a Google ID
// token. Issues the same token pair as the two-factor stage.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	pair, err := h.svc.GoogleLogin(r.Context(), req.Token)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	respondJSON(w, http.StatusOK, TokenResponse{Token: pair.AccessToken})
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.refreshTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
