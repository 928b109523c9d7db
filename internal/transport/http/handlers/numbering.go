package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SATANA888791/mail-registry/internal/infra/logger"
	"github.com/SATANA888791/mail-registry/internal/usecase"
)

// NumberingHandler serves the document numbering console.
type NumberingHandler struct {
	numbering *usecase.NumberingService
	logger    *zap.Logger
}

// NewNumberingHandler constructs the numbering endpoints.
func NewNumberingHandler(numbering *usecase.NumberingService, log *zap.Logger) *NumberingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &NumberingHandler{numbering: numbering, logger: log}
}

// Dashboard returns the next display number for both registers. Counter
// trouble degrades to placeholder numbers rather than failing the page.
func (h *NumberingHandler) Dashboard(c *gin.Context) {
	numbers := h.numbering.DashboardNumbers(c.Request.Context())
	c.JSON(http.StatusOK, DashboardNumbersResponse{
		NextOutgoing: numbers.NextOutgoing,
		NextIncoming: numbers.NextIncoming,
	})
}

// Reset zeroes the current-year counter when its register is empty, or
// realigns it to the highest issued number otherwise.
func (h *NumberingHandler) Reset(c *gin.Context) {
	d, ok := letterDomainParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown register"))
		return
	}

	outcome, err := h.numbering.ResetSequence(c.Request.Context(), d)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("sequence reset failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "sequence reset failed"))
		return
	}

	c.JSON(http.StatusOK, ResetSequenceResponse{
		Domain:  string(d),
		Outcome: string(outcome),
	})
}

// Release returns the most recently issued number to the pool. Meant for the
// case where a registration was abandoned right after allocation.
func (h *NumberingHandler) Release(c *gin.Context) {
	d, ok := letterDomainParam(c)
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "unknown register"))
		return
	}

	if err := h.numbering.ReleaseLast(c.Request.Context(), d); err != nil {
		logger.WithContext(c.Request.Context()).Error("sequence release failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "sequence release failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "last issued number released"})
}
