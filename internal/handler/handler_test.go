package handler

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

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/eventbus"
	"github.com/readmegen/backend/internal/pkg/database"
	"github.com/readmegen/backend/internal/pkg/git"
	"github.com/readmegen/backend/internal/pkg/github"
	"github.com/readmegen/backend/internal/pkg/llm"
	"github.com/readmegen/backend/internal/repository"
	"github.com/readmegen/backend/internal/service"
	"github.com/readmegen/backend/internal/subscriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBuilder struct {
	BuildFunc func(ctx context.Context, rawRef string) (*github.RepositoryContext, error)
}

func (m *mockBuilder) Build(ctx context.Context, rawRef string) (*github.RepositoryContext, error) {
	if m.BuildFunc != nil {
		return m.BuildFunc(ctx, rawRef)
	}
	return &github.RepositoryContext{
		Owner: "octocat",
		Name:  "hello-world",
		URL:   "https://github.com/octocat/hello-world",
	}, nil
}

type mockModel struct {
	ChatFunc       func(ctx context.Context, messages []*schema.Message) (string, error)
	ChatStreamFunc func(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error)
}

func (m *mockModel) Chat(ctx context.Context, messages []*schema.Message) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages)
	}
	return "# Hello World", nil
}

func (m *mockModel) ChatStream(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error) {
	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, messages)
	}
	return io.NopCloser(strings.NewReader("data: [DONE]\n\n")), nil
}

type testEnv struct {
	engine  *gin.Engine
	builder *mockBuilder
	model   *mockModel
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.InitDB("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	historyRepo := repository.NewHistoryRepository(db)
	shareRepo := repository.NewShareRepository(db)
	brandingRepo := repository.NewBrandingRepository(db)

	bus := eventbus.NewReadmeEventBus()
	subscriber.NewHistorySubscriber(historyRepo).Register(bus)

	env := &testEnv{builder: &mockBuilder{}, model: &mockModel{}}
	readmeSvc := service.NewReadmeService(config.LLMConfig{MaxInputTokens: 1000, StreamTimeout: time.Second}, env.builder, env.model, bus)

	readme := NewReadmeHandler(readmeSvc)
	history := NewHistoryHandler(service.NewHistoryService(historyRepo))
	share := NewShareHandler(service.NewShareService(shareRepo, brandingRepo))
	branding := NewBrandingHandler(service.NewBrandingService(brandingRepo))
	preset := NewPresetHandler(service.NewPresetService())

	r := gin.New()
	r.GET("/healthz", Health)
	r.POST("/api/generate", readme.Generate)
	r.POST("/api/regenerate-section", readme.RegenerateSection)
	r.POST("/api/score", readme.Score)
	r.POST("/api/improve", readme.Improve)
	r.GET("/api/history", history.List)
	r.POST("/api/history", history.Create)
	r.GET("/api/history/:id", history.Get)
	r.DELETE("/api/history/:id", history.Delete)
	r.POST("/api/shares", share.Create)
	r.GET("/api/shares/:slug", share.Get)
	r.GET("/api/branding", branding.Get)
	r.PUT("/api/branding", branding.Update)
	r.GET("/api/presets", preset.List)
	env.engine = r
	return env
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestGenerateNonStreaming(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodPost, "/api/generate", `{"repoUrl":"octocat/hello-world"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res service.GenerateResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "# Hello World", res.Readme)
	assert.Equal(t, "octocat", res.RepoInfo.Owner)
}

func TestGenerateErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		buildErr   error
		chatErr    error
		wantStatus int
		wantError  string
	}{
		{name: "missing url", body: `{"repoUrl":""}`, wantStatus: http.StatusBadRequest, wantError: msgRepoURLRequired},
		{name: "invalid url", body: `{"repoUrl":"nope"}`, buildErr: git.ErrInvalidReference, wantStatus: http.StatusBadRequest, wantError: msgInvalidURL},
		{name: "github 404", body: `{"repoUrl":"a/b"}`, buildErr: &github.UpstreamFetchError{StatusCode: 404, Status: "Not Found"}, wantStatus: http.StatusNotFound, wantError: "Failed to fetch repository: 404 Not Found"},
		{name: "github transport", body: `{"repoUrl":"a/b"}`, buildErr: &github.UpstreamFetchError{StatusCode: 0}, wantStatus: http.StatusBadGateway},
		{name: "rate limited", body: `{"repoUrl":"a/b"}`, chatErr: llm.ErrRateLimited, wantStatus: http.StatusTooManyRequests, wantError: msgRateLimited},
		{name: "quota", body: `{"repoUrl":"a/b"}`, chatErr: llm.ErrQuotaExhausted, wantStatus: http.StatusPaymentRequired, wantError: msgQuotaExhausted},
		{name: "auth", body: `{"repoUrl":"a/b"}`, chatErr: llm.ErrAuthConfiguration, wantStatus: http.StatusInternalServerError},
		{name: "generation failed", body: `{"repoUrl":"a/b"}`, chatErr: &llm.GenerationFailedError{StatusCode: 503}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.builder.BuildFunc = func(ctx context.Context, rawRef string) (*github.RepositoryContext, error) {
				if tt.buildErr != nil {
					return nil, tt.buildErr
				}
				return &github.RepositoryContext{Owner: "a", Name: "b", URL: "https://github.com/a/b"}, nil
			}
			env.model.ChatFunc = func(ctx context.Context, messages []*schema.Message) (string, error) {
				return "", tt.chatErr
			}
			env.model.ChatStreamFunc = func(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error) {
				return nil, tt.chatErr
			}

			w := env.do(http.MethodPost, "/api/generate", tt.body, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, w))
			}

			// 流式请求在写响应头之前出错，映射相同
			if tt.chatErr != nil || tt.buildErr != nil {
				ws := env.do(http.MethodPost, "/api/generate", tt.body, map[string]string{"Accept": "text/event-stream"})
				assert.Equal(t, tt.wantStatus, ws.Code)
			}
		})
	}
}

func TestGenerateStreaming(t *testing.T) {
	env := newTestEnv(t)
	env.model.ChatStreamFunc = func(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(
			": keep-alive\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"# Hello\"}}]}\n\n" +
				"data: not-json\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\" World\"}}]}\n\n" +
				"data: [DONE]\n\n")), nil
	}

	w := env.do(http.MethodPost, "/api/generate", `{"repoUrl":"octocat/hello-world","stream":true}`,
		map[string]string{ClientIDHeader: "client"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 4, body)
	assert.Contains(t, frames[0], `"type":"info"`)
	assert.Contains(t, frames[1], `"text":"# Hello"`)
	assert.Contains(t, frames[2], `"text":" World"`)
	assert.Equal(t, "data: [DONE]", frames[3])

	// 完整结束的流式生成会记入历史
	hw := env.do(http.MethodGet, "/api/history", "", map[string]string{ClientIDHeader: "client"})
	require.Equal(t, http.StatusOK, hw.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(hw.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "# Hello World", items[0]["readme_content"])
}

func TestGenerateStreamingInterrupted(t *testing.T) {
	env := newTestEnv(t)
	env.model.ChatStreamFunc = func(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			pw.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"# Partial\"}}]}\n\n"))
			pw.CloseWithError(io.ErrUnexpectedEOF)
		}()
		return pr, nil
	}

	w := env.do(http.MethodPost, "/api/generate", `{"repoUrl":"octocat/hello-world"}`,
		map[string]string{"Accept": "text/event-stream"})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"type":"error"`)
	assert.True(t, strings.HasSuffix(body, "data: [DONE]\n\n"))
	assert.Equal(t, 1, strings.Count(body, "[DONE]"))
}

func TestRegenerateSectionHandler(t *testing.T) {
	env := newTestEnv(t)
	env.model.ChatFunc = func(ctx context.Context, messages []*schema.Message) (string, error) {
		return "## Usage\n\nRun it.", nil
	}

	w := env.do(http.MethodPost, "/api/regenerate-section", `{"section":"Usage"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgSectionRequired, decodeError(t, w))

	w = env.do(http.MethodPost, "/api/regenerate-section",
		`{"section":"Usage","sectionContent":"## Usage\nold","repoInfo":{"name":"hello-world"}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var res map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "## Usage\n\nRun it.", res["content"])
}

func TestScoreAndImproveHandlers(t *testing.T) {
	env := newTestEnv(t)
	env.model.ChatFunc = func(ctx context.Context, messages []*schema.Message) (string, error) {
		if strings.Contains(messages[len(messages)-1].Content, "Score this README") {
			return "```json\n{\"score\": 72, \"suggestions\": [\"Add a demo\"], \"breakdown\": []}\n```", nil
		}
		return "# Improved", nil
	}

	w := env.do(http.MethodPost, "/api/score", `{"readme":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgReadmeRequired, decodeError(t, w))

	w = env.do(http.MethodPost, "/api/score", `{"readme":"# Hi","repoName":"hello-world"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var score service.ScoreResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	assert.Equal(t, 72, score.Score)

	w = env.do(http.MethodPost, "/api/improve", `{"readme":"# Hi"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# Improved")
}

func TestRateLimitedAcrossEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.model.ChatFunc = func(ctx context.Context, messages []*schema.Message) (string, error) {
		return "", llm.ErrRateLimited
	}

	bodies := map[string]string{
		"/api/regenerate-section": `{"section":"Usage","repoInfo":{"name":"x"}}`,
		"/api/score":              `{"readme":"# Hi"}`,
		"/api/improve":            `{"readme":"# Hi"}`,
	}
	for path, body := range bodies {
		w := env.do(http.MethodPost, path, body, nil)
		assert.Equal(t, http.StatusTooManyRequests, w.Code, path)
		assert.Equal(t, msgRateLimited, decodeError(t, w), path)
	}
}

func TestHistoryShareBrandingHandlers(t *testing.T) {
	env := newTestEnv(t)
	client := map[string]string{ClientIDHeader: "client"}

	w := env.do(http.MethodGet, "/api/history", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/history", `{"repoUrl":"octocat/hello-world","readmeContent":"# Saved"}`, client)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var saved map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	id := saved["id"].(string)
	assert.Equal(t, float64(1), saved["version"])

	w = env.do(http.MethodGet, "/api/history/"+id, "", map[string]string{ClientIDHeader: "someone-else"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPut, "/api/branding", `{"custom_logo_url":"https://x/logo.png","custom_footer":"Made by us"}`, client)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/shares", `{"repoName":"hello-world","readmeContent":"# Shared"}`, client)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var share service.ShareView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &share))
	assert.True(t, strings.HasPrefix(share.Slug, "hello-world-"))

	w = env.do(http.MethodGet, "/api/shares/"+share.Slug, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &share))
	require.NotNil(t, share.Branding)
	assert.Equal(t, "Made by us", share.Branding.Footer)

	w = env.do(http.MethodGet, "/api/shares/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodDelete, "/api/history/"+id, "", client)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodDelete, "/api/history/"+id, "", client)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPresetsAndHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/presets", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var presets service.Presets
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presets))
	assert.Len(t, presets.Templates, 5)

	w = env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
