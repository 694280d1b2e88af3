package controller

import (
	"context"
	"net/http"
	"study_buddy_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

type HealthController struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Catalog interface{ Len() int }
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, catalog interface{ Len() int }) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Catalog: catalog}
}

// @Summary 健康检查
// @Description 检查数据库、Redis 和徽章目录状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{"database": "up", "redis": "up"}
	healthy := true

	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil || sqlDB.PingContext(pingCtx) != nil {
		components["database"] = "down"
		healthy = false
	}

	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
			healthy = false
		}
	}

	badges := 0
	if c.Catalog != nil {
		badges = c.Catalog.Len()
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "Service degraded",
			Data:    gin.H{"status": "degraded", "components": components, "badges": badges},
		})
		return
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
		"badges":     badges,
	})
}
