package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

// HealthHandler probes the backing services the storefront cannot serve
// without: postgres for all state, redis for cache and webhook dedup, and
// rabbitmq for the payment event queue.
type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

// Readyz names the first failing dependency so probe output is useful during
// a partial outage.
func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.dbPool.Ping(ctx); err != nil {
		fail(c, http.StatusServiceUnavailable, "postgres unavailable")
		return
	}
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		fail(c, http.StatusServiceUnavailable, "redis unavailable")
		return
	}
	if h.amqpConn == nil || h.amqpConn.IsClosed() {
		fail(c, http.StatusServiceUnavailable, "rabbitmq unavailable")
		return
	}

	respond(c, http.StatusOK, gin.H{
		"postgres": "connected",
		"redis":    "connected",
		"rabbitmq": "connected",
	})
}
