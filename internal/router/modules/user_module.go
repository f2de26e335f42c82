package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coursebind/user-service/internal/container"
	handlers "github.com/coursebind/user-service/internal/interface/http"
	"github.com/coursebind/user-service/internal/interface/middleware"
	"github.com/coursebind/user-service/pkg/helpers"
)

// UserModule wires user HTTP handlers and JWT middleware into routes
// Public: POST /api/register, POST /api/login
// Protected: GET /api/profile
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	// Public endpoints with per-IP rate limits; both are brute-force targets
	registerLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIPAndPath())
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP())

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/login", loginLimiter, m.Handler.Login)

	// Protected
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID()))
	{
		auth.GET("/profile", m.Handler.GetProfile)
	}
}
