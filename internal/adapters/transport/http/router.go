package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/peitalin/dt-auth-service/internal/adapters/transport/http/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	CookieName       string
	RequestTimeout   time.Duration
	AllowedOrigins   []string
	AllowCredentials bool
	RateLimitRPS     int
	RateLimitBurst   int
}

func corsConfig(rc RouterConfig) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: rc.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(rc.AllowedOrigins) == 0 || (len(rc.AllowedOrigins) == 1 && rc.AllowedOrigins[0] == "*") {
		// echo the caller's origin; "*" is not allowed together with credentials
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = rc.AllowedOrigins
	}
	return cfg
}

// NewRouter wires the public HTTP surface. reg receives the HTTP metrics and
// is served on /metrics.
func NewRouter(h *Handler, auth middleware.Authenticator, rc RouterConfig, reg *prometheus.Registry, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.NewHTTPMetrics(reg).Handler())
	if rc.RateLimitRPS > 0 {
		router.Use(middleware.RateLimitPerIP(rc.RateLimitRPS, rc.RateLimitBurst, 10_000, time.Hour))
	}
	router.Use(cors.New(corsConfig(rc)))
	router.Use(middleware.Timeout(rc.RequestTimeout))

	router.GET("/_health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	router.GET("/user/get", h.GetUser)
	router.GET("/user/get/by/email", h.GetUserByEmail)
	router.POST("/users/read/many", h.GetUsersByIDs)
	router.POST("/user/create", h.CreateUser)
	router.POST("/login", h.Login)
	router.POST("/forgot/1/sendResetPasswordEmail", h.SendResetPasswordEmail)
	router.POST("/forgot/2/resetPassword", h.ResetPassword)

	session := middleware.Session(auth, rc.CookieName, log)
	router.DELETE("/logout", session, h.Logout)
	router.POST("/check/password", session, h.CheckPassword)

	authed := router.Group("/auth", session)
	authed.GET("/id", h.SessionInfo)
	authed.GET("/profile/get", h.GetProfile)
	authed.POST("/profile/update", h.UpdateProfile)
	authed.POST("/profile/changePassword", h.ChangePassword)
	authed.POST("/profile/delete", h.DeleteAccount)

	router.NoRoute(h.NotFound)
	return router
}
