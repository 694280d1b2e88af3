package controller

import (
	"errors"
	"net/http"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 上传类型对应记录的活动
var uploadActivities = map[string]string{
	util.UploadDocument: model.ActivityDocumentUploaded,
	util.UploadAudio:    model.ActivityAudioUploaded,
}

type StudyController struct {
	AIService       *service.AIService
	StorageService  *service.StorageService
	ActivityService *service.ActivityService
}

func NewStudyController(aiService *service.AIService, storageService *service.StorageService, activityService *service.ActivityService) *StudyController {
	return &StudyController{
		AIService:       aiService,
		StorageService:  storageService,
		ActivityService: activityService,
	}
}

type SummarizeRequest struct {
	Text string `json:"text" binding:"required,max=20000"`
}

type AskRequest struct {
	Question string                  `json:"question" binding:"required,max=4000"`
	History  []service.AIChatMessage `json:"history"`
}

// logStudyActivity 记录活动，失败只写日志，返回新徽章
func (c *StudyController) logStudyActivity(ctx *gin.Context, userID, activityType string, metadata model.Metadata) []service.AwardedBadge {
	result, err := c.ActivityService.LogActivity(ctx.Request.Context(), userID, activityType, metadata)
	if err != nil {
		logger.Log.Warn("Failed to log study activity",
			zap.String("userId", userID),
			zap.String("activityType", activityType),
			zap.Error(err))
		return []service.AwardedBadge{}
	}
	return result.NewBadges
}

// @Summary 生成摘要
// @Description 调用大模型生成学习资料摘要，并记录 text_summarized 活动
// @Tags 学习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body SummarizeRequest true "原文"
// @Success 200 {object} util.Response
// @Router /study/summarize [post]
func (c *StudyController) Summarize(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SummarizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	summary, err := c.AIService.Summarize(ctx.Request.Context(), req.Text)
	if err != nil {
		c.aiError(ctx, err)
		return
	}

	badges := c.logStudyActivity(ctx, user.UserID, model.ActivityTextSummarized, model.Metadata{
		"text_length": len(req.Text),
	})
	util.Success(ctx, gin.H{"summary": summary, "newBadges": badges})
}

// @Summary 学习问答
// @Description 调用大模型回答学习问题，并记录 question_asked 活动
// @Tags 学习
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body AskRequest true "问题"
// @Success 200 {object} util.Response
// @Router /study/ask [post]
func (c *StudyController) Ask(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.AIService.Ask(ctx.Request.Context(), req.Question, req.History)
	if err != nil {
		c.aiError(ctx, err)
		return
	}

	badges := c.logStudyActivity(ctx, user.UserID, model.ActivityQuestionAsked, model.Metadata{
		"question": req.Question,
	})
	util.Success(ctx, gin.H{"answer": answer, "newBadges": badges})
}

func (c *StudyController) aiError(ctx *gin.Context, err error) {
	if errors.Is(err, util.ErrEmptyPrompt) {
		util.BadRequest(ctx, err.Error())
		return
	}
	logger.Log.Error("AI request failed", zap.Error(err))
	util.Error(ctx, http.StatusBadGateway, "AI service unavailable")
}

// @Summary 上传学习资料
// @Description 上传文档或音频，并记录 document_uploaded / audio_uploaded 活动
// @Tags 学习
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param kind query string true "document 或 audio"
// @Param file formData file true "文件"
// @Success 201 {object} util.Response
// @Router /study/uploads [post]
func (c *StudyController) Upload(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	kind := ctx.Query("kind")
	activityType, ok := uploadActivities[kind]
	if !ok {
		util.BadRequest(ctx, util.ErrUnsupportedUpload.Error())
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	stored, err := c.StorageService.UploadStudyFile(ctx.Request.Context(), user.UserID, kind, fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUnsupportedUpload):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrFileTooLarge):
			util.Error(ctx, http.StatusRequestEntityTooLarge, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	badges := c.logStudyActivity(ctx, user.UserID, activityType, model.Metadata{
		"filename": stored.Filename,
		"key":      stored.Key,
		"size":     stored.Size,
	})
	util.Created(ctx, gin.H{"file": stored, "newBadges": badges})
}
