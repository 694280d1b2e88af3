package controller

import (
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WSController struct {
	Hub *service.NotificationHub
}

func NewWSController(hub *service.NotificationHub) *WSController {
	return &WSController{Hub: hub}
}

// @Summary 徽章通知
// @Description 建立 websocket 连接，新获得徽章时推送 BADGE_AWARDED 消息。浏览器可通过 token 查询参数鉴权
// @Tags 徽章
// @Security ApiKeyAuth
// @Param token query string false "JWT"
// @Router /ws/badges [get]
func (c *WSController) BadgeSocket(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	// 升级失败时 upgrader 已写回 HTTP 错误
	if err := c.Hub.ServeWS(ctx.Writer, ctx.Request, user.UserID); err != nil {
		logger.Log.Warn("Websocket connection rejected", zap.String("userId", user.UserID), zap.Error(err))
	}
}
