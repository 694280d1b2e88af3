package app

import (
	"study_buddy_backend/docs"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/middleware"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	if a.limiter != nil {
		authGroup.Use(a.limiter)
	}
	{
		a.registerStudentRoutes(authGroup, c)

		// 3. 教师/管理员接口
		admin := authGroup.Group("/admin")
		admin.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
		{
			admin.POST("/leaderboard/points", c.leaderboard.AddPoints)
		}
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	badges := rg.Group("/badges")
	{
		badges.GET("", c.badge.ListMine)
		badges.GET("/available", c.badge.ListAvailable)
		badges.GET("/progress", c.badge.Progress)
		badges.POST("/check-all", c.badge.CheckAll)
	}

	activities := rg.Group("/activities")
	{
		activities.POST("", c.activity.LogActivity)
		activities.GET("", c.activity.ListActivities)
		activities.GET("/stats", c.activity.Stats)
	}

	rg.GET("/streak", c.activity.Streak)
	rg.GET("/leaderboard", c.leaderboard.Top)

	study := rg.Group("/study")
	{
		study.POST("/summarize", c.study.Summarize)
		study.POST("/ask", c.study.Ask)
		study.POST("/uploads", c.study.Upload)
	}

	rg.GET("/ws/badges", c.ws.BadgeSocket)
}
