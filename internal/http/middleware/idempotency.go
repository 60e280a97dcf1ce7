package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Idempotency is a first-line dedup for gateway callback deliveries, keyed
// by the caller's Idempotency-Key header. The DB-backed idempotency in the
// reconciler stays authoritative; this layer just short-circuits obvious
// network replays. With a nil client it passes through.
func Idempotency(client *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		key := c.GetHeader("Idempotency-Key")
		if key == "" {
			c.Next()
			return
		}

		idemKey := "idempotency:" + key
		ctx := c.Request.Context()

		// Short TTL lock so a crashed handler cannot wedge the key forever.
		acquired, err := client.SetNX(ctx, idemKey, "PROCESSING", 15*time.Second).Result()
		if err != nil {
			// Redis trouble: fall through, the reconciler dedups anyway.
			c.Next()
			return
		}
		if !acquired {
			c.Header("X-Idempotency-Hit", "true")
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "request with this idempotency key is already being processed"})
			return
		}

		c.Next()

		if c.Writer.Status() < 500 {
			client.Set(ctx, idemKey, "COMPLETED", 24*time.Hour)
		} else {
			// Let the caller retry after a server-side failure.
			client.Del(ctx, idemKey)
		}
	}
}
