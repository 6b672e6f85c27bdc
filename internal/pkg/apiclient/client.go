package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/readmegen/backend/internal/domain"
	"k8s.io/klog/v2"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	clientIDHeader = "X-Client-ID"
)

// APIError 服务端返回的 {"error": ...}
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed: %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, e.Message)
}

// Client README 生成服务的 HTTP 客户端
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
}

func New(baseURL, clientID string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: clientID,
		// 流式生成的时长由服务端超时控制
		http: &http.Client{},
	}
}

type GenerateRequest struct {
	RepoURL string                    `json:"repoUrl"`
	Options *domain.GenerationOptions `json:"options,omitempty"`
	Stream  bool                      `json:"stream,omitempty"`
}

type SectionRequest struct {
	Section        string           `json:"section"`
	SectionContent string           `json:"sectionContent"`
	Level          int              `json:"level,omitempty"`
	RepoInfo       *domain.RepoInfo `json:"repoInfo"`
	Instruction    string           `json:"instruction,omitempty"`
}

type ScoreCategory struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Max      int    `json:"max"`
	Notes    string `json:"notes"`
}

type ScoreResult struct {
	Score       int             `json:"score"`
	Suggestions []string        `json:"suggestions"`
	Breakdown   []ScoreCategory `json:"breakdown"`
}

// GenerateStream 返回事件流响应体，调用方负责关闭
func (c *Client) GenerateStream(ctx context.Context, repoURL string, opts *domain.GenerationOptions) (io.ReadCloser, error) {
	resp, err := c.post(ctx, "/api/generate", GenerateRequest{RepoURL: repoURL, Options: opts, Stream: true}, "text/event-stream")
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) RegenerateSection(ctx context.Context, req SectionRequest) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if err := c.doJSON(ctx, "/api/regenerate-section", req, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) Score(ctx context.Context, readme, repoName string) (*ScoreResult, error) {
	var out ScoreResult
	body := map[string]string{"readme": readme, "repoName": repoName}
	if err := c.doJSON(ctx, "/api/score", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Improve(ctx context.Context, readme string) (string, error) {
	var out struct {
		Content string `json:"content"`
	}
	if err := c.doJSON(ctx, "/api/improve", map[string]string{"readme": readme}, &out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func (c *Client) doJSON(ctx context.Context, path string, in, out any) error {
	resp, err := c.post(ctx, path, in, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// post 非 2xx 时读取错误体并关闭连接
func (c *Client) post(ctx context.Context, path string, in any, accept string) (*http.Response, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.clientID != "" {
		req.Header.Set(clientIDHeader, c.clientID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	klog.V(6).Infof("API 请求: path=%s, status=%d, elapsed=%s", path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Error
		}
		return nil, apiErr
	}
	return resp, nil
}
