package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/pkg/stream"
	"github.com/readmegen/backend/internal/service/prompt"
	"github.com/readmegen/backend/internal/utils"
	"k8s.io/klog/v2"
)

const defaultStreamTimeout = 3 * time.Minute

// StreamSession 已建立上游连接、尚未向客户端写任何字节的流式生成
type StreamSession struct {
	svc      *ReadmeService
	ownerKey string
	info     domain.RepoInfo
	upstream io.ReadCloser
	ctx      context.Context
	cancel   context.CancelFunc
}

// OpenStream 完成上下文构建和上游请求。
// 这里返回的错误仍可以用普通 JSON 响应，Relay 之后只能通过 error 事件报告。
func (s *ReadmeService) OpenStream(ctx context.Context, req GenerateRequest) (*StreamSession, error) {
	if strings.TrimSpace(req.RepoURL) == "" {
		return nil, ErrRepoURLRequired
	}

	timeout := s.cfg.StreamTimeout
	if timeout <= 0 {
		timeout = defaultStreamTimeout
	}
	streamCtx, cancel := context.WithTimeout(ctx, timeout)

	rc, err := s.builder.Build(streamCtx, req.RepoURL)
	if err != nil {
		cancel()
		return nil, err
	}

	klog.V(6).Infof("Context prepared, opening AI stream: repo=%s/%s", rc.Owner, rc.Name)
	body, err := s.model.ChatStream(streamCtx, prompt.Compose(rc, req.options()))
	if err != nil {
		cancel()
		return nil, err
	}

	return &StreamSession{
		svc:      s,
		ownerKey: req.OwnerKey,
		info:     rc.RepoInfo(),
		upstream: body,
		ctx:      streamCtx,
		cancel:   cancel,
	}, nil
}

func (ss *StreamSession) RepoInfo() domain.RepoInfo {
	return ss.info
}

// Relay 向 w 转发事件直到结束，完整结束时记录生成结果
func (ss *StreamSession) Relay(w stream.EventWriter) stream.Stats {
	defer ss.cancel()
	defer ss.upstream.Close()

	acc := &accumulatingWriter{EventWriter: w}
	stats := stream.NewReframer().Run(ss.ctx, ss.info, ss.upstream, acc)
	klog.V(6).Infof("流式生成结束: repo=%s, contentEvents=%d, dropped=%d, done=%v, interrupted=%v",
		ss.info.URL, stats.ContentEvents, stats.DroppedLines, stats.SawDone, stats.Interrupted)

	if !stats.Interrupted && stats.Err == nil && acc.Len() > 0 {
		// 客户端连接可能已经结束，事件处理不跟随请求取消
		// 与非流式一致，记录时去掉包裹全文的 ```markdown 代码块
		ss.svc.publishGenerated(context.WithoutCancel(ss.ctx), ss.ownerKey, ss.info, utils.ExtractMarkdown(acc.String()))
	}
	return stats
}

// Close 放弃未转发的会话
func (ss *StreamSession) Close() {
	ss.upstream.Close()
	ss.cancel()
}

// accumulatingWriter 转发的同时累积 content 文本
type accumulatingWriter struct {
	stream.EventWriter
	strings.Builder
}

func (a *accumulatingWriter) WriteEvent(e stream.Event) error {
	if e.Type == stream.EventContent {
		a.Builder.WriteString(e.Text)
	}
	return a.EventWriter.WriteEvent(e)
}
