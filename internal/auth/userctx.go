package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// WithUser resolves the Authorization bearer token into an Actor stored
// in the request context. Requests without a token pass through
// unauthenticated; a token that fails verification is rejected.
func WithUser(verifier TokenVerifier, ensure EnsureFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			c.Next()
			return
		}

		profile, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Token inválido"})
			c.Abort()
			return
		}

		actor, err := ensure(c.Request.Context(), *profile)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error interno del servidor"})
			c.Abort()
			return
		}

		SetActor(c, actor)
		c.Next()
	}
}

// Require aborts with 401 unless WithUser authenticated the request.
func Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentActor(c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "No autenticado"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return strings.TrimSpace(bearerToken[7:])
	}
	return ""
}
