package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/fyerfyer/doc-context/api/middleware"
	"github.com/fyerfyer/doc-context/api/model"
	"github.com/fyerfyer/doc-context/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// ContextHandler 处理上下文序列化相关的API请求
type ContextHandler struct {
	contextService *services.ContextService // 上下文服务
	logger         *logrus.Logger           // 日志记录器
}

// NewContextHandler 创建新的上下文处理器
func NewContextHandler(contextService *services.ContextService) *ContextHandler {
	return &ContextHandler{
		contextService: contextService,
		logger:         middleware.GetLogger(),
	}
}

// Serialize 生成普通格式的上下文
// POST /api/context
func (h *ContextHandler) Serialize(c *gin.Context) {
	var req model.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", bindErrorDetails(err)...))
		return
	}

	text := h.contextService.Serialize(c.Request.Context(), req.Passages)
	if req.GetFormat() == model.FormatHTML {
		text = services.RenderHTML(text)
	}

	h.logger.WithFields(logrus.Fields{
		middleware.FieldTraceID: middleware.GetTraceID(c),
		"chunks":                len(req.Passages),
		"format":                req.GetFormat(),
	}).Debug("Context serialized")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ContextResponse{
		Context: text,
		Format:  req.GetFormat(),
		Chunks:  len(req.Passages),
	}))
}

// SerializeWithCitations 生成带引用ID的上下文和引用表
// POST /api/context/citations
func (h *ContextHandler) SerializeWithCitations(c *gin.Context) {
	var req model.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", bindErrorDetails(err)...))
		return
	}

	result := h.contextService.SerializeWithCitations(c.Request.Context(), req.Passages)

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.CitedContextResponse{
		Context:   result.Context,
		Citations: result.Citations,
	}))
}

// ResolveCitations 将回答中的引用ID映射回引用记录
// POST /api/citations/resolve
func (h *ContextHandler) ResolveCitations(c *gin.Context) {
	var req model.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("invalid request parameters", bindErrorDetails(err)...))
		return
	}

	sources, unknown := req.Citations.Resolve(req.Answer)
	if len(unknown) > 0 {
		h.logger.WithFields(logrus.Fields{
			middleware.FieldTraceID: middleware.GetTraceID(c),
			"unknown":               unknown,
		}).Warn("Answer references unknown citations")
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ResolveResponse{
		Sources: sources,
		Unknown: unknown,
	}))
}

// bindErrorDetails 将绑定错误转换为可读的详细信息
func bindErrorDetails(err error) []string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		details = append(details, fmt.Sprintf("%s failed on '%s'", fe.Field(), fe.Tag()))
	}
	return details
}
