package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/repository"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

const defaultActivityLimit = 50

// AdminUsersHandler serves the account administration surface.
type AdminUsersHandler struct {
	users  *usecase.UserAdminService
	logger *zap.Logger
}

// NewAdminUsersHandler constructs the admin account endpoints.
func NewAdminUsersHandler(users *usecase.UserAdminService, log *zap.Logger) *AdminUsersHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminUsersHandler{users: users, logger: log}
}

// List returns all accounts with presence and block status resolved.
// ?blocked=true narrows the list to accounts under an active block.
func (h *AdminUsersHandler) List(c *gin.Context) {
	onlyBlocked := c.Query("blocked") == "true"

	views, err := h.users.ListAccounts(c.Request.Context(), onlyBlocked)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("account list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "account list failed"))
		return
	}

	out := make([]AccountDetail, 0, len(views))
	for _, view := range views {
		out = append(out, NewAccountDetail(view))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

// Create provisions a new account.
func (h *AdminUsersHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	account, err := h.users.CreateAccount(c.Request.Context(), usecase.CreateAccountInput{
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        domain.Role(req.Role),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: repository.ErrConflict, Status: http.StatusConflict, Message: "username already taken"},
		}, http.StatusInternalServerError, "account creation failed")
		return
	}

	c.JSON(http.StatusCreated, NewAccountSummary(*account))
}

// Update rewrites an account's profile fields.
func (h *AdminUsersHandler) Update(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid account payload"))
		return
	}

	account, err := h.users.UpdateAccount(c.Request.Context(), usecase.UpdateAccountInput{
		ID:          c.Param("id"),
		Username:    req.Username,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
		Role:        domain.Role(req.Role),
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: repository.ErrConflict, Status: http.StatusConflict, Message: "username already taken"},
		}, http.StatusInternalServerError, "account update failed")
		return
	}

	c.JSON(http.StatusOK, NewAccountSummary(*account))
}

// Delete removes an account. Self-deletion is refused.
func (h *AdminUsersHandler) Delete(c *gin.Context) {
	actor, ok := authenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.users.DeleteAccount(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrSelfAction, Status: http.StatusConflict, Message: "cannot delete your own account"},
		}, http.StatusInternalServerError, "account deletion failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

// Block applies an administrative block of the requested class.
func (h *AdminUsersHandler) Block(c *gin.Context) {
	actor, ok := authenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req BlockAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid block payload"))
		return
	}

	err := h.users.BlockAccount(c.Request.Context(), usecase.BlockAccountInput{
		ActorID:       actor.ID,
		AccountID:     c.Param("id"),
		Class:         domain.BlockClass(req.Class),
		CustomMinutes: req.CustomMinutes,
		Reason:        req.Reason,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrCannotBlockAdmin, Status: http.StatusConflict, Message: "administrators cannot be blocked"},
			{Err: usecase.ErrSelfAction, Status: http.StatusConflict, Message: "cannot block your own account"},
			{Err: usecase.ErrUnknownBlockClass, Status: http.StatusBadRequest, Message: "unknown block class"},
		}, http.StatusInternalServerError, "block failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account blocked"})
}

// Unblock clears an active block.
func (h *AdminUsersHandler) Unblock(c *gin.Context) {
	actor, ok := authenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.users.UnblockAccount(c.Request.Context(), actor.ID, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrNotBlocked, Status: http.StatusConflict, Message: "account is not blocked"},
		}, http.StatusInternalServerError, "unblock failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account unblocked"})
}

// Activity returns the newest block-history entries.
func (h *AdminUsersHandler) Activity(c *gin.Context) {
	limit := queryLimit(c, defaultActivityLimit)

	events, err := h.users.RecentActivity(c.Request.Context(), limit)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("activity feed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "activity feed failed"))
		return
	}

	out := make([]BlockEventView, 0, len(events))
	for _, event := range events {
		out = append(out, NewBlockEventView(event))
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

// LoginAttempts returns the newest attempt-ledger entries.
func (h *AdminUsersHandler) LoginAttempts(c *gin.Context) {
	limit := queryLimit(c, defaultActivityLimit)

	attempts, err := h.users.RecentLoginAttempts(c.Request.Context(), limit)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("attempt feed failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "attempt feed failed"))
		return
	}

	out := make([]LoginAttemptView, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, NewLoginAttemptView(attempt))
	}
	c.JSON(http.StatusOK, gin.H{"attempts": out})
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
