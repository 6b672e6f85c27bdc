package stream

import (
	"context"
	"errors"
	"io"

	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/pkg/llm"
	"k8s.io/klog/v2"
)

const readChunkSize = 4096

// Stats 一次转发的统计信息
type Stats struct {
	ContentEvents int
	ContentBytes  int
	DroppedLines  int
	// SawDone 上游是否发出了结束标记
	SawDone bool
	// Interrupted 是否以 error 事件结束
	Interrupted bool
	Err         error
}

// DeltaDecoder 从上游 data 载荷中取出文本增量
type DeltaDecoder func(payload []byte) (string, error)

// Reframer 把上游 chat-completion 流转换成本服务的事件协议：
// 先发一个 info 事件，再逐行转发 content 事件，最后总是以终止帧结束。
type Reframer struct {
	decode DeltaDecoder
}

func NewReframer() *Reframer {
	return &Reframer{decode: llm.DecodeDelta}
}

// NewReframerWithDecoder 指定增量解码函数，测试中使用
func NewReframerWithDecoder(decode DeltaDecoder) *Reframer {
	return &Reframer{decode: decode}
}

type readResult struct {
	data []byte
	err  error
}

// run 单次转发的状态
type run struct {
	machine  *phaseMachine
	w        EventWriter
	stats    Stats
	sentinel bool
}

// Run 执行转发，阻塞直到上游结束、读取失败或 ctx 结束。
// upstream 实现 io.Closer 时，ctx 结束会关闭它以释放连接。
func (r *Reframer) Run(ctx context.Context, info domain.RepoInfo, upstream io.Reader, w EventWriter) Stats {
	st := &run{machine: newReframerMachine(), w: w}

	if err := ctx.Err(); err != nil {
		closeUpstream(upstream)
		st.fail(err)
		return st.stats
	}

	if err := w.WriteEvent(InfoEvent(info)); err != nil {
		klog.Errorf("写入 info 事件失败: %v", err)
		closeUpstream(upstream)
		st.stats.Err = err
		st.terminate()
		return st.stats
	}
	if err := st.machine.Transition(PhaseRelaying); err != nil {
		st.stats.Err = err
		st.terminate()
		return st.stats
	}

	chunks := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go pump(upstream, chunks, done)

	var lines LineBuffer
	for {
		select {
		case <-ctx.Done():
			closeUpstream(upstream)
			klog.V(6).Infof("流转发被取消: %v", ctx.Err())
			st.fail(ctx.Err())
			return st.stats

		case res := <-chunks:
			if len(res.data) > 0 {
				lines.Write(res.data)
				for {
					line, ok := lines.Next()
					if !ok {
						break
					}
					if finished := r.handleLine(st, line); finished {
						closeUpstream(upstream)
						return st.stats
					}
				}
			}
			if res.err == nil {
				continue
			}

			if errors.Is(res.err, io.EOF) {
				// 最后一行可能没有换行符
				if tail := lines.Rest(); tail != "" {
					if finished := r.handleLine(st, tail); finished {
						return st.stats
					}
				}
				klog.V(6).Infof("上游在结束标记前关闭: contentEvents=%d", st.stats.ContentEvents)
				st.terminate()
				return st.stats
			}

			klog.Errorf("读取上游流失败: %v", res.err)
			st.fail(res.err)
			return st.stats
		}
	}
}

// handleLine 处理一行，返回 true 表示转发已结束
func (r *Reframer) handleLine(st *run, line string) bool {
	payload, ok := DataPayload(line)
	if !ok || payload == "" {
		return false
	}
	if payload == DoneMarker {
		st.stats.SawDone = true
		st.terminate()
		return true
	}

	delta, err := r.decode([]byte(payload))
	if err != nil {
		st.stats.DroppedLines++
		klog.V(6).Infof("丢弃无法解析的上游行: len=%d, error=%v", len(payload), err)
		return false
	}
	if delta == "" {
		return false
	}

	if err := st.w.WriteEvent(ContentEvent(delta)); err != nil {
		klog.Errorf("写入 content 事件失败: %v", err)
		st.stats.Err = err
		st.terminate()
		return true
	}
	st.stats.ContentEvents++
	st.stats.ContentBytes += len(delta)
	return false
}

// fail 发出 error 事件后结束
func (st *run) fail(err error) {
	st.stats.Interrupted = true
	st.stats.Err = err
	if werr := st.w.WriteEvent(ErrorEvent(InterruptedMessage)); werr != nil {
		klog.V(6).Infof("写入 error 事件失败: %v", werr)
	}
	st.terminate()
}

// terminate 写终止帧，只写一次
func (st *run) terminate() {
	if st.sentinel {
		return
	}
	st.sentinel = true
	if err := st.machine.Transition(PhaseTerminated); err != nil {
		klog.Errorf("reframer 状态异常: %v", err)
	}
	if err := st.w.WriteSentinel(); err != nil {
		klog.V(6).Infof("写入终止帧失败: %v", err)
	}
}

// pump 在独立 goroutine 中读取上游，Run 返回后退出
func pump(upstream io.Reader, out chan<- readResult, done <-chan struct{}) {
	for {
		buf := make([]byte, readChunkSize)
		n, err := upstream.Read(buf)
		res := readResult{data: buf[:n], err: err}
		select {
		case out <- res:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func closeUpstream(upstream io.Reader) {
	if c, ok := upstream.(io.Closer); ok {
		c.Close()
	}
}
