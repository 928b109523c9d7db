package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/SATANA888791/mail-registry/internal/core/domain"
	"github.com/SATANA888791/mail-registry/internal/transport/http/middleware"
)

func authenticatedAccount(c *gin.Context) (*domain.Account, bool) {
	return middleware.AuthenticatedAccount(c)
}

// letterDomainParam resolves the :domain path segment to a register.
func letterDomainParam(c *gin.Context) (domain.LetterDomain, bool) {
	d := domain.LetterDomain(c.Param("domain"))
	return d, d.Valid()
}
