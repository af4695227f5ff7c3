package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/TwigBush/restodir/internal/authz"
	"github.com/TwigBush/restodir/internal/httpx"
	"github.com/TwigBush/restodir/internal/identity"
	"github.com/TwigBush/restodir/internal/policy"
	"github.com/TwigBush/restodir/internal/store"
)

var ruleSessionCreate = policy.MustRule(policy.Session, policy.Create)

type AuthHandler struct {
	Store        *store.Store
	Sessions     *identity.Sessions
	Authz        authz.Authorizer
	SecureCookie bool
}

func NewAuthHandler(s *store.Store, sessions *identity.Sessions, a authz.Authorizer, secureCookie bool) *AuthHandler {
	return &AuthHandler{Store: s, Sessions: sessions, Authz: a, SecureCookie: secureCookie}
}

type registerBody struct {
	Email       string `json:"email"       validate:"required,email,max=320"`
	Password    string `json:"password"    validate:"required,min=8,max=72"`
	DisplayName string `json:"displayName" validate:"max=100"`
}

type loginBody struct {
	Provider string `json:"provider" validate:"omitempty,oneof=email google"`
	Email    string `json:"email"    validate:"omitempty,email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Profile   *store.Profile `json:"profile"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Authz, ruleSessionCreate, "", policy.Ownership{}) {
		return
	}
	var body registerBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidBody)
		return
	}
	hash, err := identity.HashPassword(body.Password)
	if err != nil {
		serverError(w, r, err)
		return
	}
	p, err := h.Store.CreateProfile(r.Context(), body.Email, hash, body.DisplayName)
	switch {
	case errors.Is(err, store.ErrEmailTaken):
		httpx.WriteError(w, http.StatusConflict, CodeUserExists)
		return
	case err != nil:
		serverError(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusCreated, p)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, h.Authz, ruleSessionCreate, "", policy.Ownership{}) {
		return
	}
	var body loginBody
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, CodeInvalidBody)
		return
	}
	if body.Provider == "google" {
		// no OAuth provider is configured for this service
		httpx.WriteError(w, http.StatusInternalServerError, CodeAuthServerError)
		return
	}
	if body.Email == "" || body.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, CodeMissingCredentials)
		return
	}

	p, err := h.Store.ProfileByEmail(r.Context(), body.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusUnauthorized, CodeUserNotFound)
		return
	case err != nil:
		serverError(w, r, err)
		return
	}
	if err := identity.VerifyPassword(body.Password, p.PasswordHash); err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, CodeInvalidCredentials)
			return
		}
		serverError(w, r, err)
		return
	}
	h.startSession(w, r, http.StatusOK, p)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, status int, p *store.Profile) {
	tok, exp, err := h.Sessions.Issue(p.ID)
	if err != nil {
		serverError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.WriteJSON(w, status, sessionResponse{Token: tok, ExpiresAt: exp, Profile: p})
}
