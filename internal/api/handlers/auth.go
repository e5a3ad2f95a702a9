package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/FerDeNetlab/auramarket/pkg/interfaces"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const stateCookie = "aura_oauth_state"

// LoginProvider вход через внешний OIDC провайдер, реализует auth.KeycloakClient
type LoginProvider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
}

// AuthHandler вход оператора панели через Keycloak
type AuthHandler struct {
	login  LoginProvider
	logger interfaces.LoggerPort
}

func NewAuthHandler(login LoginProvider, logger interfaces.LoggerPort) *AuthHandler {
	return &AuthHandler{
		login:  login,
		logger: logger.WithField("component", "auth_handler"),
	}
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
}

// Login перенаправляет на страницу входа провайдера
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.login.GetAuthURL(state), http.StatusFound)
}

// Callback обменивает код авторизации на токены
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		respondError(w, r, http.StatusBadRequest, "bad_request", "invalid oauth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, r, http.StatusBadRequest, "bad_request", "code is required")
		return
	}

	token, err := h.login.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.WarnWithContext(r.Context(), "Ошибка обмена кода авторизации", "error", err.Error())
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "code exchange failed")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	resp := tokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Expiry:       token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		resp.IDToken = idToken
	}
	respond(w, r, resp, nil)
}
