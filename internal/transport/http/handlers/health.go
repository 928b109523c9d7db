package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	infraredis "github.com/SATANA888791/mail-registry/internal/infra/redis"
)

const readinessTimeout = 2 * time.Second

// HealthHandler reports process liveness and dependency readiness.
type HealthHandler struct {
	pool   *pgxpool.Pool
	redis  *infraredis.Client
	logger *zap.Logger
}

// NewHealthHandler constructs the health endpoints.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *infraredis.Client, log *zap.Logger) *HealthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthHandler{pool: pool, redis: redisClient, logger: log}
}

// Liveness always reports healthy while the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness verifies the backing stores are reachable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.logger.Warn("postgres readiness check failed", zap.Error(err))
			checks["postgres"] = "unavailable"
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			h.logger.Warn("redis readiness check failed", zap.Error(err))
			checks["redis"] = "unavailable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": checks})
}
