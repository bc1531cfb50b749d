package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/utils"
)

const credentialKey = "credential"

// AuthMiddleware accepts either a Bearer JWT (when JWT_SECRET_KEY is set) or an
// API key from the x-api-key header or apiKey query parameter.
func AuthMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr := utils.ExtractToken(c); tokenStr != "" && cfg.Auth.JWTSecretKey != "" {
			handleJWTAuth(c, cfg, tokenStr)
			return
		}

		apiKey := c.GetHeader("x-api-key")
		if apiKey == "" {
			apiKey = c.Query("apiKey")
		}

		if apiKey == "" {
			utils.JSONError(c, http.StatusUnauthorized, "API key is required", gin.H{
				"hint": "Provide your key in the x-api-key header or the apiKey query parameter",
			})
			return
		}

		if !utils.MatchAPIKey(apiKey, cfg.Auth.APIKeys) {
			utils.JSONError(c, http.StatusForbidden, "Invalid API key", gin.H{
				"providedKey": utils.MaskKey(apiKey),
			})
			return
		}

		c.Set(credentialKey, "key:"+apiKey)
		c.Next()
	}
}

func handleJWTAuth(c *gin.Context, cfg *config.EnvConfig, tokenStr string) {
	parsedToken, err := utils.ParseToken(tokenStr, cfg)
	if err != nil || !parsedToken.Valid {
		utils.JSON401(c, "Invalid or expired token")
		return
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		utils.JSON401(c, "Invalid token claims")
		return
	}
	if err := utils.InjectClaimsToContext(c, claims); err != nil {
		utils.JSON401(c, "Invalid claims")
		return
	}

	c.Set(credentialKey, "user:"+utils.GetUserIDFromContext(c))
	c.Next()
}
