package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warbler/warbler/internal/config"
	"github.com/warbler/warbler/internal/metrics"
	"github.com/warbler/warbler/internal/middleware"
	"github.com/warbler/warbler/internal/repository"
	"github.com/warbler/warbler/internal/services"
	"github.com/warbler/warbler/pkg/logger"
)

type RouterDeps struct {
	UserRepo       *repository.UserRepository
	UserService    *services.UserService
	MessageService *services.MessageService
	LikeService    *services.LikeService
	Sessions       *middleware.SessionManager
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	JWT            config.JWTConfig
	Logger         *logger.Logger
}

func NewRouter(deps *RouterDeps) *gin.Engine {
	pages := NewPages(deps.Sessions)
	authHandler := NewAuthHandler(deps.UserService, deps.Sessions, pages, deps.Metrics, deps.Logger)
	userHandler := NewUserHandler(deps.UserService, deps.MessageService, deps.LikeService, deps.Sessions, pages, deps.Metrics, deps.Logger)
	messageHandler := NewMessageHandler(deps.MessageService, deps.LikeService, pages, deps.Metrics, deps.Logger)
	apiHandler := NewAPIHandler(deps.UserService, deps.LikeService, deps.JWT.Secret, deps.JWT.ExpireTime, deps.Metrics, deps.Logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(loadTemplates())
	router.Static("/static", "./static")

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	// API路由
	api := router.Group("/api/v1")
	{
		api.POST("/token", apiHandler.Token)

		protected := api.Group("")
		protected.Use(middleware.NewJWTAuth(&middleware.JWTConfig{Secret: deps.JWT.Secret}))
		{
			protected.GET("/users/:id", apiHandler.GetProfile)
			protected.GET("/users/:id/following", apiHandler.GetFollowing)
			protected.GET("/users/:id/followers", apiHandler.GetFollowers)
			protected.POST("/messages/:id/like", apiHandler.ToggleLike)
		}
	}

	// 页面路由
	web := router.Group("")
	web.Use(deps.Sessions.LoadCurrentUser(deps.UserRepo))
	{
		web.GET("/", messageHandler.Home)
		web.GET("/signup", authHandler.SignupForm)
		web.POST("/signup", authHandler.Signup)
		web.GET("/login", authHandler.LoginForm)
		web.POST("/login", authHandler.Login)
		web.GET("/logout", authHandler.Logout)

		web.GET("/users", userHandler.List)
		web.GET("/users/:id", userHandler.Show)
		web.GET("/messages/:id", messageHandler.Show)

		// 需要登录的路由
		gated := web.Group("")
		gated.Use(deps.Sessions.RequireUser(deps.Metrics))
		{
			gated.GET("/users/:id/following", userHandler.Following)
			gated.GET("/users/:id/followers", userHandler.Followers)
			gated.GET("/users/:id/likes", userHandler.Likes)
			gated.GET("/users/profile", userHandler.EditForm)
			gated.POST("/users/profile", userHandler.Update)
			gated.POST("/users/follow/:id", userHandler.Follow)
			gated.POST("/users/stop-following/:id", userHandler.StopFollowing)
			gated.POST("/users/add_like/:message_id", userHandler.AddLike)
			gated.POST("/users/delete", userHandler.Delete)

			gated.GET("/messages/new", messageHandler.NewForm)
			gated.POST("/messages/new", messageHandler.Create)
			gated.POST("/messages/:id/delete", messageHandler.Delete)
		}
	}

	router.NoRoute(deps.Sessions.LoadCurrentUser(deps.UserRepo), pages.NotFound)

	return router
}
