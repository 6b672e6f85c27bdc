package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/readmegen/backend/internal/domain"
	"k8s.io/klog/v2"
)

// Sink 接收消费过程中的可见状态更新。
// 两个回调都不会并发调用；OnContent 可能来自定时器 goroutine。
type Sink interface {
	OnInfo(info domain.RepoInfo)
	OnContent(snapshot string)
}

// ConsumeOptions 单次消费选项
type ConsumeOptions struct {
	// Regenerate 原地重新生成：新内容到达前继续展示 Previous
	Regenerate bool
	Previous   string
}

// Result 消费结果
type Result struct {
	RepoInfo      *domain.RepoInfo
	Content       string
	ContentEvents int
	DroppedFrames int
}

// Consumer 客户端流消费者，每次 Consume 使用独立的 streamContext
type Consumer struct {
	sink     Sink
	interval time.Duration

	mu      sync.Mutex
	current *streamContext
}

func NewConsumer(sink Sink, flushInterval time.Duration) *Consumer {
	return &Consumer{sink: sink, interval: flushInterval}
}

// streamContext 单次消费独占的状态
type streamContext struct {
	machine   *phaseMachine
	lines     LineBuffer
	scheduler *FlushScheduler

	mu         sync.Mutex
	acc        strings.Builder
	superseded bool
	fallback   string
	result     Result
}

func (sc *streamContext) snapshot() string {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.superseded {
		return sc.fallback
	}
	return sc.acc.String()
}

func (sc *streamContext) appendContent(text string) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.superseded = true
	sc.acc.WriteString(text)
	sc.result.ContentEvents++
}

// Phase 最近一次消费所处的阶段
func (c *Consumer) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return PhaseIdle
	}
	return c.current.machine.Current()
}

// Consume 增量读取 body 直到终止帧、error 事件、读取失败或 ctx 取消。
// 出错时同时返回已累积内容的 Result。
func (c *Consumer) Consume(ctx context.Context, body io.ReadCloser, opts ConsumeOptions) (*Result, error) {
	sc := &streamContext{machine: newConsumerMachine()}
	if opts.Regenerate {
		sc.fallback = opts.Previous
	}
	sc.scheduler = NewFlushScheduler(c.interval, func() {
		c.sink.OnContent(sc.snapshot())
	})

	c.mu.Lock()
	if c.current != nil {
		// 新一轮开始后，上一轮残留的定时刷新全部作废
		c.current.scheduler.Stop()
	}
	c.current = sc
	if err := sc.machine.Transition(PhaseStreaming); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	chunks := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go pump(body, chunks, done)

	for {
		select {
		case <-ctx.Done():
			body.Close()
			sc.scheduler.Stop()
			c.settle(sc, PhaseFailed)
			klog.V(6).Infof("流消费被取消: %v", ctx.Err())
			return c.result(sc), ctx.Err()

		case res := <-chunks:
			if len(res.data) > 0 {
				sc.lines.Write(res.data)
				for {
					line, ok := sc.lines.Next()
					if !ok {
						break
					}
					if finished, err := c.handleLine(sc, line); finished {
						body.Close()
						return c.finish(sc, err)
					}
				}
			}
			if res.err == nil {
				continue
			}

			body.Close()
			if errors.Is(res.err, io.EOF) {
				if tail := sc.lines.Rest(); tail != "" {
					if finished, err := c.handleLine(sc, tail); finished {
						return c.finish(sc, err)
					}
				}
				return c.finish(sc, &StreamError{Message: InterruptedMessage})
			}
			return c.finish(sc, &StreamError{Message: InterruptedMessage, Cause: res.err})
		}
	}
}

// handleLine 返回 finished=true 表示读循环结束，err 为结束原因
func (c *Consumer) handleLine(sc *streamContext, line string) (bool, error) {
	payload, ok := DataPayload(line)
	if !ok || payload == "" {
		return false, nil
	}
	if payload == DoneMarker {
		return true, nil
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		sc.mu.Lock()
		sc.result.DroppedFrames++
		sc.mu.Unlock()
		return false, nil
	}

	switch ev.Type {
	case EventInfo:
		if ev.RepoInfo == nil {
			return false, nil
		}
		info := *ev.RepoInfo
		sc.mu.Lock()
		sc.result.RepoInfo = &info
		sc.mu.Unlock()
		sc.scheduler.Do(func() { c.sink.OnInfo(info) })
	case EventContent:
		if ev.Text == "" {
			return false, nil
		}
		sc.appendContent(ev.Text)
		sc.scheduler.Schedule()
	case EventError:
		msg := ev.Error
		if msg == "" {
			msg = InterruptedMessage
		}
		return true, &StreamError{Message: msg}
	}
	return false, nil
}

// finish 最后无条件刷新一次，出错时部分内容同样可见
func (c *Consumer) finish(sc *streamContext, err error) (*Result, error) {
	sc.scheduler.Flush()
	sc.scheduler.Stop()

	result := c.result(sc)
	if err != nil {
		var streamErr *StreamError
		if errors.As(err, &streamErr) {
			streamErr.Partial = result.Content
		}
		c.settle(sc, PhaseFailed)
		klog.V(6).Infof("流消费失败: contentEvents=%d, error=%v", result.ContentEvents, err)
		return result, err
	}

	c.settle(sc, PhaseSucceeded)
	klog.V(6).Infof("流消费完成: contentEvents=%d, bytes=%d", result.ContentEvents, len(result.Content))
	return result, nil
}

func (c *Consumer) settle(sc *streamContext, to Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := sc.machine.Transition(to); err != nil {
		klog.Errorf("consumer 状态异常: %v", err)
	}
}

func (c *Consumer) result(sc *streamContext) *Result {
	content := sc.snapshot()
	sc.mu.Lock()
	defer sc.mu.Unlock()
	r := sc.result
	r.Content = content
	return &r
}
