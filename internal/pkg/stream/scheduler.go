package stream

import (
	"sync"
	"time"
)

// DefaultFlushInterval 默认合并刷新间隔
const DefaultFlushInterval = 50 * time.Millisecond

// FlushScheduler 合并高频更新：没有待刷新时才安排一次延迟刷新，
// 同一窗口内的多次 Schedule 共用一次 flush。
// flush 在内部锁内执行，回调里不能再调用调度器的方法。
type FlushScheduler struct {
	mu         sync.Mutex
	interval   time.Duration
	flush      func()
	timer      *time.Timer
	pending    bool
	stopped    bool
	generation uint64
}

func NewFlushScheduler(interval time.Duration, flush func()) *FlushScheduler {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &FlushScheduler{interval: interval, flush: flush}
}

// Schedule 如果没有待执行的刷新则安排一次
func (s *FlushScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.pending {
		return
	}
	s.pending = true
	gen := s.generation
	s.timer = time.AfterFunc(s.interval, func() { s.fire(gen) })
}

func (s *FlushScheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 已停止或已被 Flush 抢先，过期回调直接丢弃
	if s.stopped || !s.pending || gen != s.generation {
		return
	}
	s.pending = false
	s.flush()
}

// Flush 取消待执行的刷新并立即刷新一次
func (s *FlushScheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.cancelLocked()
	s.flush()
}

// Stop 停止调度，之后已安排的回调都是空操作
func (s *FlushScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.stopped = true
}

func (s *FlushScheduler) cancelLocked() {
	s.generation++
	s.pending = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Do 在调度器锁内执行 fn，与 flush 串行
func (s *FlushScheduler) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
