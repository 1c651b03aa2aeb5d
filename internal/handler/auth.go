package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/task-management-api/internal/middleware"
	"github.com/iliyamo/task-management-api/internal/model"
	"github.com/iliyamo/task-management-api/internal/repository"
	"github.com/iliyamo/task-management-api/internal/service"
	"github.com/iliyamo/task-management-api/internal/utils"
)

// AuthHandler bundles dependencies for the token endpoints.
type AuthHandler struct {
	Users  *repository.UserRepo
	Tokens *service.TokenService
}

func NewAuthHandler(u *repository.UserRepo, t *service.TokenService) *AuthHandler {
	return &AuthHandler{Users: u, Tokens: t}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

// Login: verify credentials against the user directory and issue a fresh
// access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) || u.Status != model.UserStatusActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	pair, err := h.Tokens.Issue(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh: redeem a refresh assertion for a new pair, rotating the persisted
// token. Every failure mode surfaces as the same 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Tokens.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error": "refresh token is invalid: it may have been rotated, invalidated or expired",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Invalidate: log out the session the refresh token belongs to. The caller
// identity comes from the already-verified access token; the route guard
// guarantees it is present.
func (h *AuthHandler) Invalidate(c echo.Context) error {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refreshToken required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.Invalidate(ctx, strings.TrimSpace(req.RefreshToken), identity.Subject); err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"error": "refresh token is invalid: it may have been rotated, invalidated or expired",
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invalidate failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
