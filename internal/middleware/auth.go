package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/MrX1068/stunxtV2-sub005/internal/common"

	"github.com/gin-gonic/gin"
)

const apiKeyHeader = "X-API-Key"

// Auth returns middleware that validates the X-API-Key header against the
// configured keys. Callers are other backend services, not end users, so a
// static key set is enough. Keys are compared as SHA-256 digests in constant
// time; hashing first keeps the comparison length-independent.
func Auth(validKeys []string) gin.HandlerFunc {
	hashes := make([][32]byte, 0, len(validKeys))
	for _, k := range validKeys {
		hashes = append(hashes, sha256.Sum256([]byte(k)))
	}

	return func(c *gin.Context) {
		key := c.GetHeader(apiKeyHeader)
		if key == "" {
			common.Error(c, http.StatusUnauthorized, "missing "+apiKeyHeader+" header")
			c.Abort()
			return
		}

		sum := sha256.Sum256([]byte(key))
		for _, valid := range hashes {
			if subtle.ConstantTimeCompare(sum[:], valid[:]) == 1 {
				c.Next()
				return
			}
		}

		common.Error(c, http.StatusUnauthorized, "invalid API key")
		c.Abort()
	}
}
