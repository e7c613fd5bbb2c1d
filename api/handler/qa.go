package handler

import (
	"net/http"
	"strings"

	"github.com/fyerfyer/doc-context/api/middleware"
	"github.com/fyerfyer/doc-context/api/model"
	"github.com/fyerfyer/doc-context/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// QAHandler 处理问答相关的API请求
type QAHandler struct {
	qaService *services.QAService // 问答服务，未配置大模型时为nil
	logger    *logrus.Logger      // 日志记录器
}

// NewQAHandler 创建新的问答处理器
func NewQAHandler(qaService *services.QAService) *QAHandler {
	return &QAHandler{
		qaService: qaService,
		logger:    middleware.GetLogger(),
	}
}

// AnswerQuestion 处理问答请求
// POST /api/qa
func (h *QAHandler) AnswerQuestion(c *gin.Context) {
	if h.qaService == nil {
		middleware.HandleError(c, middleware.NewUnavailableError("question answering is not configured"))
		return
	}

	var req model.QARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", bindErrorDetails(err)...))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		middleware.HandleError(c, middleware.NewValidationError("question cannot be empty"))
		return
	}

	h.logger.WithFields(logrus.Fields{
		middleware.FieldTraceID: middleware.GetTraceID(c),
		"question":              req.Question,
		"chunks":                len(req.Passages),
	}).Info("Answering question")

	resp, err := h.qaService.Answer(c.Request.Context(), req.Question, req.Passages)
	if err != nil {
		middleware.HandleError(c, middleware.NewUpstreamError("failed to answer question", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.QAResponse{
		Question: req.Question,
		Answer:   resp.Answer,
		Sources:  resp.Sources,
		Unknown:  resp.Unknown,
	}))
}
