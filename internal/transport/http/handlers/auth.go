package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

// AuthHandler serves the authentication gate.
type AuthHandler struct {
	auth   *usecase.AuthService
	logger *zap.Logger
}

// NewAuthHandler constructs the authentication endpoints.
func NewAuthHandler(auth *usecase.AuthService, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, logger: log}
}

// Login evaluates one authentication submission.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	result, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       c.ClientIP(),
	})
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		Account:     NewAccountSummary(result.Account),
	})
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	var blocked *usecase.BlockedError
	if errors.As(err, &blocked) {
		c.JSON(http.StatusForbidden, BlockedResponse{
			Error:            blocked.Error(),
			Status:           blocked.Status,
			RemainingMinutes: blocked.RemainingMinutes,
			RequestID:        requestIDFromContext(c.Request.Context()),
		})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrTooManyAttempts):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials; repeated failures will lock the account"))
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	case errors.Is(err, usecase.ErrLedgerUnavailable):
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "authentication is temporarily unavailable"))
	default:
		logger.WithContext(c.Request.Context()).Error("login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
	}
}

// Me returns the authenticated account's own profile.
func (h *AuthHandler) Me(c *gin.Context) {
	account, ok := authenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, NewAccountSummary(*account))
}
