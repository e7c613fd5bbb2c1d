package api

import (
	"net/http"

	"github.com/fyerfyer/doc-context/api/handler"
	"github.com/fyerfyer/doc-context/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	contextHandler *handler.ContextHandler,
	qaHandler *handler.QAHandler,
	extra ...gin.HandlerFunc,
) *gin.Engine {
	router := gin.New()

	// 追踪ID需要先于日志和错误处理设置
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	router.Use(extra...)

	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	api := router.Group("/api")
	{
		// 上下文序列化API
		ctxGroup := api.Group("/context")
		{
			// 普通格式 - POST /api/context
			ctxGroup.POST("", contextHandler.Serialize)

			// 带引用ID - POST /api/context/citations
			ctxGroup.POST("/citations", contextHandler.SerializeWithCitations)
		}

		// 引用解析 - POST /api/citations/resolve
		api.POST("/citations/resolve", contextHandler.ResolveCitations)

		// 问答 - POST /api/qa
		api.POST("/qa", qaHandler.AnswerQuestion)

		// 健康检查 - GET /api/health
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
