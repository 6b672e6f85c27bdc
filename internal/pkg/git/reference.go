package git

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidReference 仓库地址既不是 GitHub URL 也不是 owner/repo 简写
var ErrInvalidReference = errors.New("invalid repository reference")

var (
	githubURLPattern = regexp.MustCompile(`github\.com[/:]([^/\s]+)/([^/\s?#]+)`)
	shorthandPattern = regexp.MustCompile(`^([^/\s]+)/([^/\s]+)$`)
)

// Reference 仓库定位
type Reference struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

func (r Reference) String() string {
	return r.Owner + "/" + r.Repo
}

// ParseReference 解析完整 URL 或 owner/repo 简写，结尾的 .git 会先被去掉
func ParseReference(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimSuffix(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	if trimmed == "" {
		return Reference{}, ErrInvalidReference
	}

	for _, pattern := range []*regexp.Regexp{githubURLPattern, shorthandPattern} {
		matches := pattern.FindStringSubmatch(trimmed)
		if len(matches) != 3 {
			continue
		}
		owner := matches[1]
		repo := strings.TrimSuffix(matches[2], ".git")
		if owner == "" || repo == "" {
			continue
		}
		return Reference{Owner: owner, Repo: repo}, nil
	}

	return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
}

// RepoKey 用于判断两个地址是否指向同一个仓库
func (r Reference) RepoKey() string {
	return strings.ToLower(r.Owner) + "/" + strings.ToLower(r.Repo)
}

// CanonicalURL https://github.com/owner/repo
func (r Reference) CanonicalURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Repo)
}
