package controller

import (
	"errors"
	"strconv"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ActivityController struct {
	ActivityService *service.ActivityService
	StreakService   *service.StreakService
}

func NewActivityController(activityService *service.ActivityService, streakService *service.StreakService) *ActivityController {
	return &ActivityController{ActivityService: activityService, StreakService: streakService}
}

type LogActivityRequest struct {
	ActivityType string         `json:"activityType" binding:"required,max=64"`
	Metadata     model.Metadata `json:"metadata"`
}

// @Summary 记录活动
// @Description 写入一条活动并返回本次新获得的徽章
// @Tags 活动
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body LogActivityRequest true "活动"
// @Success 201 {object} util.Response{data=service.ActivityResult}
// @Router /activities [post]
func (c *ActivityController) LogActivity(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req LogActivityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ActivityService.LogActivity(ctx.Request.Context(), user.UserID, req.ActivityType, req.Metadata)
	if err != nil {
		if errors.Is(err, util.ErrInvalidActivityType) || errors.Is(err, util.ErrUserNotFound) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 活动列表
// @Description 最近 N 天的活动，type 按规范类型匹配所有别名
// @Tags 活动
// @Produce json
// @Security ApiKeyAuth
// @Param days query int false "天数，默认 7"
// @Param type query string false "活动类型"
// @Success 200 {object} util.Response{data=[]model.UserActivity}
// @Router /activities [get]
func (c *ActivityController) ListActivities(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	days := 0
	if raw := ctx.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			util.BadRequest(ctx, "days must be between 1 and 365")
			return
		}
		days = n
	}

	activities, err := c.ActivityService.GetUserActivities(ctx.Request.Context(), user.UserID, days, ctx.Query("type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, activities)
}

// @Summary 活动统计
// @Description 最近 30 天按类型统计
// @Tags 活动
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.ActivityStats}
// @Router /activities/stats [get]
func (c *ActivityController) Stats(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	stats, err := c.ActivityService.GetActivityStats(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// @Summary 连续学习
// @Description 当前连续天数、等级和下一个里程碑
// @Tags 活动
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.StreakSummary}
// @Router /streak [get]
func (c *ActivityController) Streak(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.StreakService.Summary(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}
