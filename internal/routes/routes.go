package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"vinyl_back_end/internal/handlers"
	"vinyl_back_end/internal/middleware"
	"vinyl_back_end/internal/utils"
)

// NewRouter builds the gin engine with logging, recovery and, when origins are
// configured, CORS with credentials.
func NewRouter(h *handlers.Handler, corsOrigins []string) *gin.Engine {
	r := gin.Default()

	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     corsOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	RegisterRoutes(r, h)
	return r
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	auditor := h.Auditor

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	api.Use(middleware.LoadSession(h.Sessions, h.CookieName))

	// Auth
	authGroup := api.Group("/auth")
	authGroup.POST("/register", middleware.AuditAuth(auditor, utils.ACTION_USER_REGISTER, utils.RESOURCE_USER), h.Register)
	authGroup.POST("/login", middleware.AuditAuth(auditor, utils.ACTION_LOGIN, utils.RESOURCE_AUTH), h.Login)
	authGroup.GET("/logout", middleware.RequireAuth(), middleware.AuditAuth(auditor, utils.ACTION_LOGOUT, utils.RESOURCE_AUTH), h.Logout)
	authGroup.GET("/me", h.Me)
	authGroup.POST("/change-password", middleware.RequireAuth(), middleware.AuditAuth(auditor, utils.ACTION_PASSWORD, utils.RESOURCE_AUTH), h.ChangePassword)
	authGroup.GET("/sessions", middleware.RequireAuth(), h.ListSessions)
	authGroup.DELETE("/sessions", middleware.RequireAuth(), middleware.AuditAuth(auditor, utils.ACTION_REVOKE, utils.RESOURCE_AUTH), h.RevokeOtherSessions)
	if auditor != nil {
		authGroup.GET("/activity", middleware.RequireAuth(), h.GetActivity)
	}

	// Products
	api.GET("/products", h.GetProducts)
	api.GET("/products/genres", h.GetGenres)

	// Cart (every route requires a session)
	cartGroup := api.Group("/cart", middleware.RequireAuth())
	cartGroup.POST("/add", h.AddToCart)
	cartGroup.GET("/cart-count", h.CartCount)
	cartGroup.GET("", h.GetCart)
	cartGroup.DELETE("/all", h.ClearCart)
	cartGroup.DELETE("/:itemId", h.RemoveFromCart)
	if h.Events != nil {
		cartGroup.GET("/ws", h.CartWebSocket)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}
