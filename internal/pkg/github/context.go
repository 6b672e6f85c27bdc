package github

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/pkg/git"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// RepositoryAPI Builder 依赖的 GitHub 接口，测试中可替换
type RepositoryAPI interface {
	GetRepository(ctx context.Context, ref git.Reference) (*Repository, error)
	ListContents(ctx context.Context, ref git.Reference, path string) ([]ContentEntry, error)
	GetLanguages(ctx context.Context, ref git.Reference) (map[string]int64, error)
	GetFileContent(ctx context.Context, ref git.Reference, path string) (string, error)
}

// RepositoryContext 一次生成请求的仓库上下文，构建完成后只读
type RepositoryContext struct {
	Owner         string
	Name          string
	Description   string
	Language      string
	Languages     []string
	Topics        []string
	License       string
	Stars         int
	Forks         int
	URL           string
	DefaultBranch string
	FileTree      []TreeEntry
	Dependencies  []string
	Manifests     map[string]string
}

// HasManifest 清单文件是否被成功拉取
func (rc *RepositoryContext) HasManifest(name string) bool {
	_, ok := rc.Manifests[name]
	return ok
}

func (rc *RepositoryContext) HasPackageJSON() bool     { return rc.HasManifest(ManifestPackageJSON) }
func (rc *RepositoryContext) HasRequirementsTxt() bool { return rc.HasManifest(ManifestRequirements) }
func (rc *RepositoryContext) HasCargoToml() bool       { return rc.HasManifest(ManifestCargoToml) }
func (rc *RepositoryContext) HasGoMod() bool           { return rc.HasManifest(ManifestGoMod) }

// DetectedPackageManagers 按白名单顺序返回检测到的包管理器
func (rc *RepositoryContext) DetectedPackageManagers() []string {
	var managers []string
	for _, name := range ManifestFiles {
		if rc.HasManifest(name) {
			managers = append(managers, PackageManagers[name])
		}
	}
	return managers
}

// RenderFileTree 一级目录的文本表示
func (rc *RepositoryContext) RenderFileTree() string {
	lines := make([]string, 0, len(rc.FileTree))
	for _, entry := range rc.FileTree {
		icon := "📄"
		if entry.IsDir() {
			icon = "📁"
		}
		lines = append(lines, icon+" "+entry.Name)
	}
	return strings.Join(lines, "\n")
}

// RepoInfo 下发给客户端的仓库身份信息
func (rc *RepositoryContext) RepoInfo() domain.RepoInfo {
	return domain.RepoInfo{
		Name:        rc.Name,
		Owner:       rc.Owner,
		Description: rc.Description,
		Language:    rc.Language,
		Stars:       rc.Stars,
		Forks:       rc.Forks,
		URL:         rc.URL,
	}
}

// Builder 仓库上下文构建器
type Builder struct {
	api RepositoryAPI
}

func NewBuilder(api RepositoryAPI) *Builder {
	return &Builder{api: api}
}

// Build 解析仓库地址并拉取元数据、一级目录和语言分布。
// 三个请求并发执行并全部结束后才返回；只有元数据失败会导致整体失败。
func (b *Builder) Build(ctx context.Context, rawRef string) (*RepositoryContext, error) {
	ref, err := git.ParseReference(rawRef)
	if err != nil {
		return nil, err
	}
	klog.V(6).Infof("Processing repository: %s", ref)

	var (
		repo      *Repository
		contents  []ContentEntry
		languages map[string]int64
		mu        sync.Mutex
	)

	var g errgroup.Group
	g.Go(func() error {
		r, err := b.api.GetRepository(ctx, ref)
		if err != nil {
			klog.Errorf("获取仓库元数据失败: repo=%s, error=%v", ref, err)
			return err
		}
		mu.Lock()
		repo = r
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		entries, err := b.api.ListContents(ctx, ref, "")
		if err != nil {
			klog.Warningf("获取目录列表失败，按空目录处理: repo=%s, error=%v", ref, err)
			return nil
		}
		mu.Lock()
		contents = entries
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		langs, err := b.api.GetLanguages(ctx, ref)
		if err != nil {
			klog.Warningf("获取语言分布失败，按空处理: repo=%s, error=%v", ref, err)
			return nil
		}
		mu.Lock()
		languages = langs
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 清单文件逐个顺序拉取，减少对 GitHub 的并发压力
	manifests := make(map[string]string)
	for _, entry := range contents {
		if entry.Type != "" && entry.Type != "file" {
			continue
		}
		if !isManifest(entry.Name) {
			continue
		}
		if _, seen := manifests[entry.Name]; seen {
			continue
		}
		content, err := b.api.GetFileContent(ctx, ref, entry.Name)
		if err != nil {
			klog.V(6).Infof("清单文件拉取失败，跳过: repo=%s, file=%s, error=%v", ref, entry.Name, err)
			continue
		}
		if content == "" {
			continue
		}
		manifests[entry.Name] = content
	}

	rc := newRepositoryContext(ref, repo, contents, languages, manifests)
	klog.V(6).Infof("仓库上下文构建完成: repo=%s, files=%d, languages=%d, manifests=%d, deps=%d",
		ref, len(rc.FileTree), len(rc.Languages), len(rc.Manifests), len(rc.Dependencies))
	return rc, nil
}

func newRepositoryContext(ref git.Reference, repo *Repository, contents []ContentEntry, languages map[string]int64, manifests map[string]string) *RepositoryContext {
	rc := &RepositoryContext{
		Owner:         firstNonEmpty(repo.Owner.Login, ref.Owner),
		Name:          firstNonEmpty(repo.Name, ref.Repo),
		Description:   firstNonEmpty(strings.TrimSpace(repo.Description), "No description provided"),
		Language:      firstNonEmpty(repo.Language, "Unknown"),
		Languages:     sortLanguages(languages),
		Topics:        append([]string{}, repo.Topics...),
		License:       "Not specified",
		Stars:         repo.StargazersCount,
		Forks:         repo.ForksCount,
		URL:           firstNonEmpty(repo.HTMLURL, ref.CanonicalURL()),
		DefaultBranch: repo.DefaultBranch,
		FileTree:      make([]TreeEntry, 0, len(contents)),
		Dependencies:  []string{},
		Manifests:     manifests,
	}
	if repo.License != nil && repo.License.Name != "" {
		rc.License = repo.License.Name
	}
	for _, entry := range contents {
		rc.FileTree = append(rc.FileTree, TreeEntry{Name: entry.Name, Type: entry.Type})
	}
	if content, ok := manifests[ManifestPackageJSON]; ok {
		rc.Dependencies = ExtractNodeDependencies(content)
	}
	return rc
}

// sortLanguages 字节数降序，相同时按名称
func sortLanguages(languages map[string]int64) []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if languages[names[i]] != languages[names[j]] {
			return languages[names[i]] > languages[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
