package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"muralhub/internal/engine/organizations"
	"muralhub/internal/pkg/errors"
	"muralhub/internal/platform/auth"
	"muralhub/internal/platform/models"
	"muralhub/internal/platform/repositories"
)

type AuthHandler struct {
	orgSvc   *organizations.Service
	userRepo *repositories.UserRepository
	orgRepo  *repositories.OrganizationRepository
	tokenSvc *auth.TokenService
}

func NewAuthHandler(orgSvc *organizations.Service, userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository, tokenSvc *auth.TokenService) *AuthHandler {
	return &AuthHandler{
		orgSvc:   orgSvc,
		userRepo: userRepo,
		orgRepo:  orgRepo,
		tokenSvc: tokenSvc,
	}
}

type SignupResponse struct {
	User         *models.User         `json:"user"`
	Organization *models.Organization `json:"organization"`
	Claimed      bool                 `json:"claimed"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req organizations.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	res, err := h.orgSvc.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(res.User)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	errors.WriteJSON(w, http.StatusCreated, SignupResponse{
		User:         res.User,
		Organization: res.Organization,
		Claimed:      res.Claimed,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if user == nil || user.PasswordHash == "" {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	accessToken, refreshToken, err := h.issueTokens(user)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	now := time.Now().Unix()
	if err := h.userRepo.UpdateLastLogin(r.Context(), user.ID, now); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLoginAt = &now
	}

	orgs, err := h.orgRepo.ListByOwner(r.Context(), user.ID)
	if err == nil {
		user.Organizations = orgs
	}

	errors.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	claims, err := h.tokenSvc.ValidateToken(req.RefreshToken)
	if err != nil || claims.UserID != "" {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid refresh token", nil)
		return
	}

	// Roles may have changed since the refresh token was issued.
	user, err := h.userRepo.GetByID(r.Context(), claims.Subject)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if user == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "User not found", nil)
		return
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.Email, user.Roles)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	errors.WriteJSON(w, http.StatusOK, RefreshResponse{AccessToken: accessToken})
}

func (h *AuthHandler) issueTokens(user *models.User) (string, string, error) {
	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.Email, user.Roles)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := h.tokenSvc.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}
