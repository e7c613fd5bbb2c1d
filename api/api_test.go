package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fyerfyer/doc-context/api/handler"
	"github.com/fyerfyer/doc-context/api/middleware"
	"github.com/fyerfyer/doc-context/internal/cache"
	"github.com/fyerfyer/doc-context/internal/llm"
	"github.com/fyerfyer/doc-context/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockLLM 模拟大模型客户端
type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, options ...llm.GenerateOption) (*llm.Response, error) {
	args := m.Called(ctx, prompt)
	resp, _ := args.Get(0).(*llm.Response)
	return resp, args.Error(1)
}

func (m *mockLLM) Name() string {
	return "mock-llm"
}

// apiResponse 通用响应，data保持原始JSON
type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

// 测试环境
type testEnv struct {
	Router *gin.Engine
	LLM    *mockLLM
}

// setupTestEnv 创建测试环境，withQA为false时不配置问答服务
func setupTestEnv(t *testing.T, withQA bool) *testEnv {
	gin.SetMode(gin.TestMode)
	middleware.GetLogger().SetOutput(io.Discard)

	memCache, err := cache.NewCache(cache.Config{
		Type:            "memory",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Minute,
	})
	require.NoError(t, err)

	env := &testEnv{LLM: new(mockLLM)}

	var qaService *services.QAService
	if withQA {
		qaService = services.NewQAService(llm.NewRAG(env.LLM), memCache, services.WithLogger(middleware.GetLogger()))
	}

	env.Router = SetupRouter(
		handler.NewContextHandler(services.NewContextService(memCache, services.WithContextLogger(middleware.GetLogger()))),
		handler.NewQAHandler(qaService),
		Cors(),
	)
	return env
}

func (e *testEnv) post(t *testing.T, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

const samplePassagesJSON = `[
	{"content": "Alpha text.", "metadata": {"page": 1, "source": "doc.pdf"}},
	{"content": "Beta text.", "metadata": {"page_number": 2}}
]`

// TestSerializeContextAPI 测试普通上下文接口
func TestSerializeContextAPI(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.post(t, "/api/context", `{"passages": `+samplePassagesJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.TraceIDHeader))

	var data struct {
		Context string `json:"context"`
		Format  string `json:"format"`
		Chunks  int    `json:"chunks"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "Chunk 1 (page=1):\nAlpha text.\n\nChunk 2 (page=2):\nBeta text.", data.Context)
	assert.Equal(t, "text", data.Format)
	assert.Equal(t, 2, data.Chunks)
}

// TestSerializeContextHTML 测试HTML格式输出
func TestSerializeContextHTML(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.post(t, "/api/context", `{"format": "html", "passages": `+samplePassagesJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Context string `json:"context"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.True(t, strings.HasPrefix(data.Context, "<p>Chunk 1 (page=1):"))
}

// TestSerializeEmptyPassages 测试空段落列表
func TestSerializeEmptyPassages(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.post(t, "/api/context/citations", `{"passages": []}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"context": "", "citations": {}}`, string(resp.Data))
}

// TestSerializeWithCitationsAPI 测试带引用的上下文接口
func TestSerializeWithCitationsAPI(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.post(t, "/api/context/citations", `{"passages": `+samplePassagesJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.JSONEq(t, `{
		"context": "[C1] Chunk from page 1:\nAlpha text.\n\n[C2] Chunk from page 2:\nBeta text.",
		"citations": {
			"C1": {"page": 1, "source": "doc.pdf", "snippet": "Alpha text...."},
			"C2": {"page": 2, "source": "unknown", "snippet": "Beta text...."}
		}
	}`, string(resp.Data))

	// 引用表的键顺序与段落顺序一致
	assert.Less(t, bytes.Index(resp.Data, []byte(`"C1"`)), bytes.Index(resp.Data, []byte(`"C2"`)))
}

// TestValidationErrors 测试参数校验
func TestValidationErrors(t *testing.T) {
	env := setupTestEnv(t, true)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing passages", "/api/context", `{}`},
		{"bad format", "/api/context", `{"format": "pdf", "passages": []}`},
		{"malformed json", "/api/context/citations", `{"passages": `},
		{"missing citations", "/api/citations/resolve", `{"answer": "x [C1]"}`},
		{"citations not an object", "/api/citations/resolve", `{"answer": "x [C1]", "citations": []}`},
		{"blank question", "/api/qa", `{"question": "  ", "passages": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(middleware.TraceIDHeader, "trace-123")
			w := httptest.NewRecorder()
			env.Router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp apiResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, "trace-123", resp.TraceID)
		})
	}
}

// TestResolveCitationsAPI 测试引用解析接口
func TestResolveCitationsAPI(t *testing.T) {
	env := setupTestEnv(t, false)

	body := `{
		"answer": "Beta [C2] and ghost [C5].",
		"citations": {
			"C1": {"page": 1, "source": "doc.pdf", "snippet": "Alpha text...."},
			"C2": {"page": 2, "source": "unknown", "snippet": "Beta text...."}
		}
	}`
	w, resp := env.post(t, "/api/citations/resolve", body)
	require.Equal(t, http.StatusOK, w.Code)

	assert.JSONEq(t, `{
		"sources": [{"id": "C2", "page": 2, "source": "unknown", "snippet": "Beta text...."}],
		"unknown": ["C5"]
	}`, string(resp.Data))
}

// TestResolveEmptyAnswer 测试空回答的引用解析
func TestResolveEmptyAnswer(t *testing.T) {
	env := setupTestEnv(t, false)

	for _, body := range []string{
		`{"answer": "", "citations": {"C1": {"page": 1, "source": "doc.pdf", "snippet": "Alpha text...."}}}`,
		`{"citations": {}}`,
	} {
		w, resp := env.post(t, "/api/citations/resolve", body)
		require.Equal(t, http.StatusOK, w.Code, body)
		assert.JSONEq(t, `{"sources": [], "unknown": []}`, string(resp.Data))
	}
}

// TestSerializeLargePageNumber 测试较大的页码按整数输出
func TestSerializeLargePageNumber(t *testing.T) {
	env := setupTestEnv(t, false)

	w, resp := env.post(t, "/api/context", `{"passages": [{"content": "x", "metadata": {"page_number": 1000000}}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Context string `json:"context"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "Chunk 1 (page=1000000):\nx", data.Context)
}

// TestQAAPI 测试问答接口
func TestQAAPI(t *testing.T) {
	env := setupTestEnv(t, true)
	env.LLM.On("Generate", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "[C1] Chunk from page 1:\nAlpha text.")
	})).Return(&llm.Response{Text: "Alpha is in the PDF [C1]."}, nil).Once()

	w, resp := env.post(t, "/api/qa", `{"question": "Where is alpha?", "passages": `+samplePassagesJSON+`}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.JSONEq(t, `{
		"question": "Where is alpha?",
		"answer": "Alpha is in the PDF [C1].",
		"sources": [{"id": "C1", "page": 1, "source": "doc.pdf", "snippet": "Alpha text...."}],
		"unknown": []
	}`, string(resp.Data))
	env.LLM.AssertExpectations(t)
}

// TestQAAPIUpstreamError 测试大模型错误
func TestQAAPIUpstreamError(t *testing.T) {
	env := setupTestEnv(t, true)
	env.LLM.On("Generate", mock.Anything, mock.Anything).
		Return(nil, llm.NewLLMError(llm.ErrCodeServerError, "down"))

	w, resp := env.post(t, "/api/qa", `{"question": "q", "passages": `+samplePassagesJSON+`}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.NotEmpty(t, resp.TraceID)
}

// TestQAAPINotConfigured 测试未配置问答服务
func TestQAAPINotConfigured(t *testing.T) {
	env := setupTestEnv(t, false)

	w, _ := env.post(t, "/api/qa", `{"question": "q", "passages": []}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// TestHealthAndCors 测试健康检查和跨域
func TestHealthAndCors(t *testing.T) {
	env := setupTestEnv(t, false)

	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	env.Router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/context", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
