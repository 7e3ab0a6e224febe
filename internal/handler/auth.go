package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/middleware"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/utils"
)

const dbTimeout = 5 * time.Second

// UserStore is satisfied by *repository.UserRepo.
type UserStore interface {
	Create(ctx context.Context, name, email, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	users      UserStore
	secret     string
	accessTTL  time.Duration
	bcryptCost int
	log        logger.Logger
}

func NewAuthHandler(users UserStore, secret string, accessTTL time.Duration, bcryptCost int, log logger.Logger) *AuthHandler {
	return &AuthHandler{users: users, secret: secret, accessTTL: accessTTL, bcryptCost: bcryptCost, log: log}
}

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// Register creates a user and returns an access token immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return bad(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return bad(c, http.StatusBadRequest, "email/password required")
	}
	if !strings.Contains(req.Email, "@") {
		return bad(c, http.StatusBadRequest, "invalid email")
	}
	if len(req.Password) < 6 {
		return bad(c, http.StatusBadRequest, "password must be at least 6 characters")
	}
	if len(req.Password) > 72 {
		return bad(c, http.StatusBadRequest, "password must be at most 72 bytes")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, err := h.users.Create(ctx, req.Name, req.Email, req.Password, h.bcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return bad(c, http.StatusConflict, "email already exists")
		}
		h.log.Error("create user failed", "error", err)
		return bad(c, http.StatusInternalServerError, "create user failed")
	}
	u := model.User{ID: uid, Name: strings.TrimSpace(req.Name), Email: req.Email}
	return h.issue(c, http.StatusCreated, "Registered", u)
}

// Login verifies credentials and returns a new access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return bad(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return bad(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bad(c, http.StatusUnauthorized, "invalid credentials")
		}
		h.log.Error("load user failed", "error", err)
		return bad(c, http.StatusInternalServerError, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return bad(c, http.StatusUnauthorized, "invalid credentials")
	}
	return h.issue(c, http.StatusOK, "Logged in", u)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, okID := middleware.UserID(c)
	if !okID {
		return bad(c, http.StatusUnauthorized, "unauthenticated")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return bad(c, http.StatusNotFound, "user not found")
		}
		h.log.Error("load user failed", "user_id", uid, "error", err)
		return bad(c, http.StatusInternalServerError, "query failed")
	}
	return ok(c, http.StatusOK, "Me", echo.Map{"user": u})
}

func (h *AuthHandler) issue(c echo.Context, code int, msg string, u model.User) error {
	access, err := utils.NewAccessToken(h.secret, u.ID, h.accessTTL)
	if err != nil {
		h.log.Error("issue access token failed", "user_id", u.ID, "error", err)
		return bad(c, http.StatusInternalServerError, "issue access failed")
	}
	return ok(c, code, msg, authResp{User: u, Token: access.Token, ExpiresAt: access.Exp})
}
