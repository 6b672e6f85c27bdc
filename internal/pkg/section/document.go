package section

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"k8s.io/klog/v2"
)

var (
	ErrRegenerationInProgress = errors.New("section regeneration already in progress")
	ErrStaleSnapshot          = errors.New("document changed during regeneration")
	ErrSectionNotFound        = errors.New("section not found")
)

// RegenerateFunc 根据当前快照中的章节生成替换内容
type RegenerateFunc func(ctx context.Context, sec Section) (string, error)

// Document 持有当前 markdown，同一时刻只允许一个章节重新生成
type Document struct {
	mu       sync.Mutex
	markdown string
	version  uint64
	busy     bool
}

func NewDocument(markdown string) *Document {
	return &Document{markdown: markdown}
}

// Markdown 当前全文
func (d *Document) Markdown() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.markdown
}

// Sections 基于当前全文重新切分
func (d *Document) Sections() []Section {
	return Segment(d.Markdown())
}

// Set 整体替换全文，之前算出的章节全部失效
func (d *Document) Set(markdown string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.markdown = markdown
	d.version++
}

// Regenerate 对当前快照重新切分，找到 title 对应的章节，调用 fn 生成替换内容后原子地拼接回去。
// fn 执行期间全文被修改时返回 ErrStaleSnapshot，替换不会生效。
func (d *Document) Regenerate(ctx context.Context, title string, fn RegenerateFunc) (Section, error) {
	return d.regenerate(ctx, fn, func(sections []Section) (Section, error) {
		sec, ok := FindByTitle(sections, title)
		if !ok {
			return Section{}, fmt.Errorf("%w: %q", ErrSectionNotFound, title)
		}
		return sec, nil
	})
}

// RegenerateByID 同 Regenerate，按章节 ID 定位，用于同名章节
func (d *Document) RegenerateByID(ctx context.Context, id string, fn RegenerateFunc) (Section, error) {
	return d.regenerate(ctx, fn, func(sections []Section) (Section, error) {
		sec, ok := FindByID(sections, id)
		if !ok {
			return Section{}, fmt.Errorf("%w: id %q", ErrSectionNotFound, id)
		}
		return sec, nil
	})
}

func (d *Document) regenerate(ctx context.Context, fn RegenerateFunc, find func([]Section) (Section, error)) (Section, error) {
	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return Section{}, ErrRegenerationInProgress
	}
	d.busy = true
	snapshot, version := d.markdown, d.version
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.busy = false
		d.mu.Unlock()
	}()

	sec, err := find(Segment(snapshot))
	if err != nil {
		return Section{}, err
	}
	klog.V(6).Infof("重新生成章节: title=%s, lines=%d-%d", sec.Title, sec.StartLine, sec.EndLine)

	replacement, err := fn(ctx, sec)
	if err != nil {
		return sec, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.version != version {
		return sec, ErrStaleSnapshot
	}
	// 替换内容的标题保持原章节层级
	d.markdown = Splice(snapshot, sec, NormalizeHeading(replacement, sec.Level))
	d.version++
	return sec, nil
}
