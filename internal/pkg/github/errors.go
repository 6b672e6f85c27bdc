package github

import (
	"errors"
	"fmt"
)

// ErrUpstreamFetch 仓库元数据拉取失败（仓库不存在或 GitHub 不可用）
var ErrUpstreamFetch = errors.New("upstream fetch failed")

// UpstreamFetchError 携带 GitHub 返回的状态码
type UpstreamFetchError struct {
	StatusCode int
	Status     string
	Path       string
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("Failed to fetch repository: %d %s", e.StatusCode, e.Status)
}

func (e *UpstreamFetchError) Is(target error) bool {
	return target == ErrUpstreamFetch
}
