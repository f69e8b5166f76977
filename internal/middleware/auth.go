package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const travelerIDKey = "travelerID"

// RequireTraveler returns middleware that authenticates the bearer token and
// requires its subject to be the traveler named by the :id route parameter.
// An empty secret disables the check.
func RequireTraveler(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		subject, err := parseSubject(tokenStr, key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if id := c.Param("id"); id != "" && id != subject {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not belong to this traveler"})
			return
		}

		c.Set(travelerIDKey, subject)
		c.Next()
	}
}

// TravelerID returns the authenticated traveler, if any.
func TravelerID(c *gin.Context) string {
	return c.GetString(travelerIDKey)
}

// parseSubject validates an HS256 token and returns its "sub" claim, falling
// back to "user_id".
func parseSubject(tokenStr string, key []byte) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return uid, nil
	}
	return "", fmt.Errorf("token has no subject")
}
