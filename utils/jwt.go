package utils

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tnqbao/gau-focus-service/config"
)

func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
		return parts[1]
	}
	return ""
}

func ParseToken(tokenString string, config *config.EnvConfig) (*jwt.Token, error) {
	if config.Auth.JWTSecretKey == "" {
		return nil, errors.WithHint(errors.New("JWT authentication is not configured"), "set JWT_SECRET_KEY")
	}
	secret := []byte(config.Auth.JWTSecretKey)
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
}

// InjectClaimsToContext stores the token's user_id; it becomes the default ownerId
func InjectClaimsToContext(c *gin.Context, claims jwt.MapClaims) error {
	userID, ok := claims["user_id"].(string)
	if !ok || strings.TrimSpace(userID) == "" {
		return errors.New("invalid user_id claim")
	}
	c.Set("user_id", userID)
	return nil
}

// GetUserIDFromContext returns the authenticated user id, or "" for API-key callers
func GetUserIDFromContext(c *gin.Context) string {
	return c.GetString("user_id")
}
