package bulk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"k8s.io/klog/v2"
)

// Status 单个仓库的处理状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusGenerating Status = "generating"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

var ErrNoItems = errors.New("no repositories to generate")

// Item 一行输入对应一个 Item，Index 为输入顺序
type Item struct {
	Index    int
	Ref      string
	Status   Status
	Readme   string
	Err      error
	Duration time.Duration
}

// FileName 下载文件名：<仓库名>-README.md
func (it Item) FileName() string {
	ref := strings.TrimSuffix(strings.TrimSpace(it.Ref), "/")
	name := ref
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		name = ref[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	if name == "" {
		name = "readme"
	}
	return name + "-README.md"
}

// GenerateFunc 生成一个仓库的 README
type GenerateFunc func(ctx context.Context, ref string) (string, error)

// Runner 用 ants 协程池批量生成，workers=1 时按输入顺序串行
type Runner struct {
	workers  int
	generate GenerateFunc
	// OnUpdate 每次状态变化时回调，调用是串行的
	OnUpdate func(Item)

	mu sync.Mutex
}

func NewRunner(workers int, generate GenerateFunc) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{workers: workers, generate: generate}
}

// ParseList 每行一个仓库，忽略空行和 # 注释
func ParseList(r io.Reader) ([]string, error) {
	var refs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	return refs, scanner.Err()
}

// Run 阻塞直到全部完成或 ctx 结束，返回按输入顺序排列的结果。
// ctx 结束后尚未开始的条目标记为 error。
func (r *Runner) Run(ctx context.Context, refs []string) ([]Item, error) {
	if len(refs) == 0 {
		return nil, ErrNoItems
	}

	items := make([]Item, len(refs))
	for i, ref := range refs {
		items[i] = Item{Index: i, Ref: ref, Status: StatusPending}
		r.notify(items[i])
	}

	pool, err := ants.NewPool(r.workers,
		ants.WithNonblocking(false),
		ants.WithPanicHandler(func(p any) {
			klog.Errorf("bulk worker panic: %v", p)
		}),
	)
	if err != nil {
		klog.Errorf("ants pool initialization failed: %v", err)
		return nil, err
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := range items {
		if ctx.Err() != nil {
			r.finish(&items[i], "", ctx.Err(), 0)
			continue
		}
		wg.Add(1)
		item := &items[i]
		submitErr := pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					r.finish(item, "", fmt.Errorf("panic: %v", p), 0)
				}
			}()
			r.runItem(ctx, item)
		})
		if submitErr != nil {
			wg.Done()
			r.finish(item, "", submitErr, 0)
		}
	}
	wg.Wait()

	return items, ctx.Err()
}

func (r *Runner) runItem(ctx context.Context, item *Item) {
	if err := ctx.Err(); err != nil {
		r.finish(item, "", err, 0)
		return
	}
	r.mu.Lock()
	item.Status = StatusGenerating
	r.mu.Unlock()
	r.notify(*item)

	start := time.Now()
	readme, err := r.generate(ctx, item.Ref)
	if err == nil && strings.TrimSpace(readme) == "" {
		err = errors.New("empty README")
	}
	r.finish(item, readme, err, time.Since(start))
}

func (r *Runner) finish(item *Item, readme string, err error, elapsed time.Duration) {
	r.mu.Lock()
	item.Duration = elapsed
	if err != nil {
		item.Status = StatusError
		item.Err = err
		klog.Warningf("生成失败: repo=%s, error=%v", item.Ref, err)
	} else {
		item.Status = StatusDone
		item.Readme = readme
		klog.V(6).Infof("生成完成: repo=%s, elapsed=%s", item.Ref, elapsed)
	}
	snapshot := *item
	r.mu.Unlock()
	r.notify(snapshot)
}

func (r *Runner) notify(item Item) {
	if r.OnUpdate == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OnUpdate(item)
}
