package api

import (
	stdhttp "net/http"

	intconfig "carrental/internal/config"
	h "carrental/internal/http/handlers"
	"carrental/internal/http/middleware"
	"carrental/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminRoles may call the admin endpoints.
var AdminRoles = []string{"admin", "operator"}

// Deps are the handlers the router mounts.
type Deps struct {
	Bookings h.BookingHandler
	Admin    h.AdminHandler
	System   h.SystemHandler
}

func NewRouter(env intconfig.Env, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogError("", "http", "init", "failed to set trusted proxies", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"code":   "ROUTE_NOT_FOUND",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", deps.System.Health)

		v1 := api.Group("/v1")

		bookings := v1.Group("/bookings")
		bookings.POST("", deps.Bookings.Create)
		bookings.GET("/:bookingId", deps.Bookings.Get)
		bookings.DELETE("/:bookingId", deps.Bookings.Cancel)
		bookings.GET("/:bookingId/voucher", deps.Bookings.Voucher)

		admin := v1.Group("/admin", adminGuard(env.JWTSecret)...)
		admin.POST("/sweeps", deps.Admin.RunSweep)
		admin.GET("/payment-events/:paymentId", deps.Admin.GetPaymentEvent)
		admin.DELETE("/payment-events/:paymentId", deps.Admin.ForgetPaymentEvent)
	}

	return r
}

// adminGuard checks tokens and roles only when a signing secret is set.
func adminGuard(secret string) []gin.HandlerFunc {
	if secret == "" {
		return nil
	}
	return []gin.HandlerFunc{middleware.Auth(secret), middleware.RequireRoles(AdminRoles...)}
}
