package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/readmegen/backend/config"
	"k8s.io/klog/v2"
)

// Client LLM 客户端
type Client struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Client    *http.Client
}

// NewClient 创建新的 LLM 客户端
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		BaseURL:   strings.TrimSuffix(cfg.APIURL, "/"),
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		// 流式响应的总时长由调用方的 context 控制，这里不设 Timeout
		Client: &http.Client{},
	}
}

// Chat 发送非流式对话请求，返回第一条回复内容
func (c *Client) Chat(ctx context.Context, messages []*schema.Message) (string, error) {
	klog.V(6).Infof("Chat 请求: model=%s, messages=%d, promptTokens≈%d", c.Model, len(messages), estimateMessages(messages))

	resp, err := c.send(ctx, c.newRequest(messages, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		klog.V(6).Infof("LLM 返回空 choices")
		return "", nil
	}

	klog.V(6).Infof("Chat 完成: completionTokens=%d", chatResp.Usage.CompletionTokens)
	return chatResp.Choices[0].Message.Content, nil
}

// ChatStream 发送 stream=true 请求，返回上游原始响应体，调用方负责关闭
func (c *Client) ChatStream(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error) {
	klog.V(6).Infof("ChatStream 请求: model=%s, messages=%d, promptTokens≈%d", c.Model, len(messages), estimateMessages(messages))

	resp, err := c.send(ctx, c.newRequest(messages, true))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) newRequest(messages []*schema.Message, stream bool) ChatRequest {
	return ChatRequest{
		Model:       c.Model,
		Messages:    toChatMessages(messages),
		MaxTokens:   c.MaxTokens,
		Temperature: 0.7,
		Stream:      stream,
	}
}

// send 发送请求；非 2xx 时读取并记录错误体后返回映射后的错误
func (c *Client) send(ctx context.Context, reqBody ChatRequest) (*http.Response, error) {
	if c.APIKey == "" {
		return nil, ErrAuthConfiguration
	}

	url := c.BaseURL + "/chat/completions"
	klog.V(6).Infof("发送 LLM 请求: url=%s, model=%s, stream=%v", url, reqBody.Model, reqBody.Stream)

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	if reqBody.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	start := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		klog.Errorf("AI API error: status=%d, body=%s", resp.StatusCode, string(errBody))
		return nil, statusError(resp.StatusCode)
	}

	klog.V(6).Infof("LLM 响应头到达: status=%d, elapsed=%s", resp.StatusCode, time.Since(start))
	return resp, nil
}

func toChatMessages(messages []*schema.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		out = append(out, ChatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return out
}

func estimateMessages(messages []*schema.Message) int {
	total := 0
	for _, msg := range messages {
		if msg != nil {
			total += EstimateTokens(msg.Content)
		}
	}
	return total
}
