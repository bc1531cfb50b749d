package middlewares

import (
	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-focus-service/http/controller"
)

type Middlewares struct {
	CORSMiddleware      gin.HandlerFunc
	AuthMiddleware      gin.HandlerFunc
	RateLimitMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	if ctrl.Infra.RateLimiter == nil {
		return nil, errors.New("rate limiter is not initialized")
	}

	cors := CORSMiddleware(ctrl.Config.EnvConfig)
	auth := AuthMiddleware(ctrl.Config.EnvConfig)
	rateLimit := RateLimitMiddleware(ctrl.Infra.RateLimiter, ctrl.Config.EnvConfig.RateLimit.KeySecret)

	return &Middlewares{
		CORSMiddleware:      cors,
		AuthMiddleware:      auth,
		RateLimitMiddleware: rateLimit,
	}, nil
}
