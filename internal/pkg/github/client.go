package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/pkg/git"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"
)

// Client GitHub REST API 只读客户端
type Client struct {
	BaseURL   string
	Token     string
	UserAgent string
	Client    *http.Client

	limiter *rate.Limiter
}

// NewClient 创建 GitHub 客户端
func NewClient(cfg config.GitHubConfig) *Client {
	baseURL := strings.TrimSuffix(cfg.APIURL, "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "README-Generator"
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		BaseURL:   baseURL,
		Token:     cfg.Token,
		UserAgent: userAgent,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
	}
}

// GetRepository 获取仓库元数据
func (c *Client) GetRepository(ctx context.Context, ref git.Reference) (*Repository, error) {
	var repo Repository
	if err := c.getJSON(ctx, repoPath(ref, ""), &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListContents 获取目录列表；path 指向文件时返回单元素列表
func (c *Client) ListContents(ctx context.Context, ref git.Reference, path string) ([]ContentEntry, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, repoPath(ref, "/contents/"+escapePath(path)), &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []ContentEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode contents: %w", err)
		}
		return entries, nil
	}

	var entry ContentEntry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return nil, fmt.Errorf("decode contents: %w", err)
	}
	return []ContentEntry{entry}, nil
}

// GetLanguages 获取语言字节数分布
func (c *Client) GetLanguages(ctx context.Context, ref git.Reference) (map[string]int64, error) {
	languages := map[string]int64{}
	if err := c.getJSON(ctx, repoPath(ref, "/languages"), &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

// GetFileContent 获取文件内容并做 base64 解码
func (c *Client) GetFileContent(ctx context.Context, ref git.Reference, path string) (string, error) {
	var entry ContentEntry
	if err := c.getJSON(ctx, repoPath(ref, "/contents/"+escapePath(path)), &entry); err != nil {
		return "", err
	}
	if entry.Content == "" {
		return "", nil
	}
	return decodeContent(entry.Content)
}

func decodeContent(content string) (string, error) {
	// GitHub 每 60 个字符插入一个换行
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(content)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("decode base64 content: %w", err)
	}
	return string(decoded), nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.BaseURL + path
	klog.V(6).Infof("GitHub 请求: GET %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", c.UserAgent)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &UpstreamFetchError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Path:       path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func repoPath(ref git.Reference, suffix string) string {
	return "/repos/" + url.PathEscape(ref.Owner) + "/" + url.PathEscape(ref.Repo) + suffix
}

func escapePath(path string) string {
	if path == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
