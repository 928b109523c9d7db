package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

// LettersHandler serves letter registration and lookup for both registers.
type LettersHandler struct {
	letters *usecase.LetterService
	logger  *zap.Logger
}

// NewLettersHandler constructs the letter endpoints.
func NewLettersHandler(letters *usecase.LetterService, log *zap.Logger) *LettersHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LettersHandler{letters: letters, logger: log}
}

// RegisterOutgoing allocates the next outgoing number and persists the letter.
func (h *LettersHandler) RegisterOutgoing(c *gin.Context) {
	account, ok := authenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req RegisterOutgoingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid letter payload"))
		return
	}

	letter, err := h.letters.RegisterOutgoing(c.Request.Context(), usecase.RegisterOutgoingInput{
		OwnerID:     account.ID,
		Subject:     req.Subject,
		Recipient:   req.Recipient,
		IsProtected: req.IsProtected,
	})
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("outgoing registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "letter registration failed"))
		return
	}

	c.JSON(http.StatusCreated, NewLetterView(*letter))
}

// RegisterIncoming allocates the next incoming number and persists the letter.
func (h *LettersHandler) RegisterIncoming(c *gin.Context) {
	account, ok := authenticatedAccount(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req RegisterIncomingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid letter payload"))
		return
	}

	letter, err := h.letters.RegisterIncoming(c.Request.Context(), usecase.RegisterIncomingInput{
		OwnerID:      account.ID,
		Subject:      req.Subject,
		Organization: req.Organization,
		ForwardedTo:  req.ForwardedTo,
	})
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("incoming registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "letter registration failed"))
		return
	}

	c.JSON(http.StatusCreated, NewLetterView(*letter))
}

// List returns one register's letters, optionally narrowed to a year.
func (h *LettersHandler) List(c *gin.Context) {
	d, ok := letterDomainParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown register"))
		return
	}

	year := 0
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid year"))
			return
		}
		year = parsed
	}

	letters, err := h.letters.List(c.Request.Context(), d, year)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("letter list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "letter list failed"))
		return
	}

	out := make([]LetterView, 0, len(letters))
	for _, letter := range letters {
		out = append(out, NewLetterView(letter))
	}
	c.JSON(http.StatusOK, gin.H{"letters": out})
}

// Get returns one letter with its attachment metadata.
func (h *LettersHandler) Get(c *gin.Context) {
	d, ok := letterDomainParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown register"))
		return
	}

	letter, err := h.letters.Get(c.Request.Context(), d, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrLetterNotFound, Status: http.StatusNotFound, Message: "letter not found"},
		}, http.StatusInternalServerError, "letter lookup failed")
		return
	}

	attachments, err := h.letters.Attachments(c.Request.Context(), d, letter.ID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("attachment list failed", zap.Error(err))
		attachments = nil
	}

	views := make([]AttachmentView, 0, len(attachments))
	for _, attachment := range attachments {
		views = append(views, NewAttachmentView(attachment))
	}
	c.JSON(http.StatusOK, gin.H{
		"letter":      NewLetterView(*letter),
		"attachments": views,
	})
}

// Delete removes a letter and its attachment metadata.
func (h *LettersHandler) Delete(c *gin.Context) {
	d, ok := letterDomainParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown register"))
		return
	}

	if err := h.letters.Delete(c.Request.Context(), d, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrLetterNotFound, Status: http.StatusNotFound, Message: "letter not found"},
		}, http.StatusInternalServerError, "letter deletion failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "letter deleted"})
}

// Attach records attachment metadata against a letter.
func (h *LettersHandler) Attach(c *gin.Context) {
	d, ok := letterDomainParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown register"))
		return
	}

	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid attachment payload"))
		return
	}

	attachment, err := h.letters.Attach(c.Request.Context(), usecase.AttachInput{
		OwnerKind: d,
		OwnerID:   c.Param("id"),
		Filename:  req.Filename,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAttachmentOwnerMissing, Status: http.StatusNotFound, Message: "letter not found"},
		}, http.StatusInternalServerError, "attachment failed")
		return
	}

	c.JSON(http.StatusCreated, NewAttachmentView(*attachment))
}
