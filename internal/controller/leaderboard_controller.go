package controller

import (
	"errors"
	"strconv"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const maxLeaderboardPage = 100

type LeaderboardController struct {
	LeaderboardService *service.LeaderboardService
}

func NewLeaderboardController(leaderboardService *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{LeaderboardService: leaderboardService}
}

// @Summary 排行榜
// @Description 按积分降序，start/end 为闭区间下标
// @Tags 排行榜
// @Produce json
// @Security ApiKeyAuth
// @Param start query int false "起始下标，默认 0"
// @Param end query int false "结束下标，默认 9"
// @Success 200 {object} util.Response{data=[]service.LeaderboardEntry}
// @Router /leaderboard [get]
func (c *LeaderboardController) Top(ctx *gin.Context) {
	start, err1 := strconv.ParseInt(ctx.DefaultQuery("start", "0"), 10, 64)
	end, err2 := strconv.ParseInt(ctx.DefaultQuery("end", "9"), 10, 64)
	if err1 != nil || err2 != nil || start < 0 || end < start || end-start >= maxLeaderboardPage {
		util.BadRequest(ctx, "invalid range")
		return
	}

	entries, err := c.LeaderboardService.Top(ctx.Request.Context(), start, end)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

type AddPointsRequest struct {
	UserID string `json:"userId" binding:"required"`
	Points int    `json:"points" binding:"required"`
}

// @Summary 调整积分
// @Description 教师/管理员为用户加减积分，会触发排行榜徽章检查
// @Tags 排行榜
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body AddPointsRequest true "积分"
// @Success 200 {object} util.Response{data=service.LeaderboardStanding}
// @Router /admin/leaderboard/points [post]
func (c *LeaderboardController) AddPoints(ctx *gin.Context) {
	var req AddPointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	standing, err := c.LeaderboardService.AddPoints(ctx.Request.Context(), req.UserID, req.Points)
	if err != nil {
		if errors.Is(err, util.ErrInvalidPoints) {
			util.BadRequest(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, standing)
}
