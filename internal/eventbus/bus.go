package eventbus

import (
	"context"
	"errors"
	"sync"
)

type ReadmeEventHandler func(ctx context.Context, event ReadmeEvent) error

type subscription struct {
	id      uint64
	handler ReadmeEventHandler
}

// ReadmeEventBus 进程内同步事件总线，按 event.Type 分发，同类型订阅者按订阅顺序调用
type ReadmeEventBus struct {
	mu     sync.RWMutex
	subs   map[ReadmeEventType][]subscription
	nextID uint64
}

func NewReadmeEventBus() *ReadmeEventBus {
	return &ReadmeEventBus{subs: make(map[ReadmeEventType][]subscription)}
}

// Subscribe 返回取消订阅函数，重复调用无副作用
func (b *ReadmeEventBus) Subscribe(eventType ReadmeEventType, handler ReadmeEventHandler) func() {
	if handler == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(eventType, id) })
	}
}

func (b *ReadmeEventBus) remove(eventType ReadmeEventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		// 复制一份，正在 Publish 的快照不受影响
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, eventType)
		} else {
			b.subs[eventType] = next
		}
		return
	}
}

// Publish 调用 event.Type 的全部订阅者，一个失败不影响其余，错误合并返回
func (b *ReadmeEventBus) Publish(ctx context.Context, event ReadmeEvent) error {
	b.mu.RLock()
	subs := b.subs[event.Type]
	b.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := s.handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
