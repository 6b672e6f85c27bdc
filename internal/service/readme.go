package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/readmegen/backend/config"
	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/eventbus"
	"github.com/readmegen/backend/internal/pkg/git"
	"github.com/readmegen/backend/internal/pkg/github"
	"github.com/readmegen/backend/internal/pkg/llm"
	"github.com/readmegen/backend/internal/pkg/section"
	"github.com/readmegen/backend/internal/service/prompt"
	"github.com/readmegen/backend/internal/utils"
	"k8s.io/klog/v2"
)

// ContextBuilder 仓库上下文构建
type ContextBuilder interface {
	Build(ctx context.Context, rawRef string) (*github.RepositoryContext, error)
}

// ChatModel 模型调用
type ChatModel interface {
	Chat(ctx context.Context, messages []*schema.Message) (string, error)
	ChatStream(ctx context.Context, messages []*schema.Message) (io.ReadCloser, error)
}

type ReadmeService struct {
	cfg     config.LLMConfig
	builder ContextBuilder
	model   ChatModel
	bus     *eventbus.ReadmeEventBus
}

func NewReadmeService(cfg config.LLMConfig, builder ContextBuilder, model ChatModel, bus *eventbus.ReadmeEventBus) *ReadmeService {
	return &ReadmeService{
		cfg:     cfg,
		builder: builder,
		model:   model,
		bus:     bus,
	}
}

type GenerateRequest struct {
	RepoURL  string                    `json:"repoUrl"`
	Options  *domain.GenerationOptions `json:"options,omitempty"`
	Stream   bool                      `json:"stream,omitempty"`
	OwnerKey string                    `json:"-"`
}

func (r GenerateRequest) options() domain.GenerationOptions {
	if r.Options == nil {
		return domain.DefaultOptions()
	}
	return r.Options.Normalize()
}

type GenerateResult struct {
	Readme   string          `json:"readme"`
	RepoInfo domain.RepoInfo `json:"repoInfo"`
}

// Generate 非流式生成
func (s *ReadmeService) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if strings.TrimSpace(req.RepoURL) == "" {
		return nil, ErrRepoURLRequired
	}

	rc, err := s.builder.Build(ctx, req.RepoURL)
	if err != nil {
		return nil, err
	}

	klog.V(6).Infof("Context prepared, calling AI: repo=%s/%s", rc.Owner, rc.Name)
	content, err := s.model.Chat(ctx, prompt.Compose(rc, req.options()))
	if err != nil {
		return nil, err
	}
	readme := utils.ExtractMarkdown(content)

	s.publishGenerated(ctx, req.OwnerKey, rc.RepoInfo(), readme)
	klog.V(6).Infof("README generated successfully: repo=%s/%s, bytes=%d", rc.Owner, rc.Name, len(readme))
	return &GenerateResult{Readme: readme, RepoInfo: rc.RepoInfo()}, nil
}

// SectionRequest 单章节重新生成请求
type SectionRequest struct {
	Section        string           `json:"section"`
	SectionContent string           `json:"sectionContent"`
	// Level 原章节标题的 # 个数，缺省按二级标题
	Level       int              `json:"level,omitempty"`
	RepoInfo    *domain.RepoInfo `json:"repoInfo"`
	Instruction string           `json:"instruction,omitempty"`
}

// RegenerateSection 只重写一个章节，返回的新内容以同级标题开头
func (s *ReadmeService) RegenerateSection(ctx context.Context, req SectionRequest) (string, error) {
	if strings.TrimSpace(req.Section) == "" || req.RepoInfo == nil {
		return "", ErrSectionRequired
	}

	content, truncated := llm.TruncateToTokens(req.SectionContent, s.cfg.MaxInputTokens)
	if truncated {
		klog.Warningf("章节内容超过 token 上限已截断: section=%s", req.Section)
	}

	msgs := prompt.ComposeSectionRegeneration(prompt.SectionRegeneration{
		Section:        req.Section,
		SectionContent: content,
		Level:          req.Level,
		RepoInfo:       *req.RepoInfo,
		Instruction:    req.Instruction,
	})
	out, err := s.model.Chat(ctx, msgs)
	if err != nil {
		return "", err
	}
	klog.V(6).Infof("章节重新生成完成: section=%s, bytes=%d", req.Section, len(out))
	return section.NormalizeHeading(strings.TrimSpace(utils.ExtractMarkdown(out)), req.Level), nil
}

type ScoreRequest struct {
	Readme   string `json:"readme"`
	RepoName string `json:"repoName,omitempty"`
	// RepoURL 有值且带 owner key 时评分会记到对应历史上
	RepoURL  string `json:"repoUrl,omitempty"`
	OwnerKey string `json:"-"`
}

type ScoreCategory struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	Max      int    `json:"max"`
	Notes    string `json:"notes"`
}

type ScoreResult struct {
	Score       int             `json:"score"`
	Suggestions []string        `json:"suggestions"`
	Breakdown   []ScoreCategory `json:"breakdown"`
}

// 模型可能返回小数
type rawScore struct {
	Score       *float64 `json:"score"`
	Suggestions []string `json:"suggestions"`
	Breakdown   []struct {
		Category string  `json:"category"`
		Score    float64 `json:"score"`
		Max      float64 `json:"max"`
		Notes    string  `json:"notes"`
	} `json:"breakdown"`
}

// Score 对 README 打分，模型输出经过校验和截断到合法区间
func (s *ReadmeService) Score(ctx context.Context, req ScoreRequest) (*ScoreResult, error) {
	if strings.TrimSpace(req.Readme) == "" {
		return nil, ErrReadmeRequired
	}

	readme, truncated := llm.TruncateToTokens(req.Readme, s.cfg.MaxInputTokens)
	if truncated {
		klog.Warningf("README 超过 token 上限已截断: repo=%s", req.RepoName)
	}

	out, err := s.model.Chat(ctx, prompt.ComposeScore(readme, req.RepoName))
	if err != nil {
		return nil, err
	}
	result, err := parseScore(out)
	if err != nil {
		klog.Errorf("解析评分结果失败: %v, output=%s", err, truncateForLog(out))
		return nil, err
	}

	if s.bus != nil && req.OwnerKey != "" && req.RepoURL != "" {
		event := eventbus.ReadmeEvent{
			Type:     eventbus.ReadmeEventScored,
			OwnerKey: req.OwnerKey,
			RepoURL:  canonicalRepoURL(req.RepoURL),
			RepoName: req.RepoName,
			Score:    result.Score,
		}
		if err := s.bus.Publish(ctx, event); err != nil {
			klog.Errorf("发布评分事件失败: %v", err)
		}
	}
	return result, nil
}

func parseScore(out string) (*ScoreResult, error) {
	var raw rawScore
	if err := json.Unmarshal([]byte(utils.ExtractJSON(out)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if raw.Score == nil {
		return nil, fmt.Errorf("%w: missing score", ErrInvalidScore)
	}

	result := &ScoreResult{
		Score:       clamp(round(*raw.Score), 0, 100),
		Suggestions: []string{},
		Breakdown:   []ScoreCategory{},
	}
	for _, suggestion := range raw.Suggestions {
		if strings.TrimSpace(suggestion) != "" {
			result.Suggestions = append(result.Suggestions, suggestion)
		}
	}
	for _, b := range raw.Breakdown {
		limit := round(b.Max)
		if limit <= 0 {
			limit = 100
		}
		result.Breakdown = append(result.Breakdown, ScoreCategory{
			Category: b.Category,
			Score:    clamp(round(b.Score), 0, limit),
			Max:      limit,
			Notes:    b.Notes,
		})
	}
	return result, nil
}

type ImproveRequest struct {
	Readme string `json:"readme"`
}

// Improve 保持结构不变地润色整篇 README
func (s *ReadmeService) Improve(ctx context.Context, req ImproveRequest) (string, error) {
	if strings.TrimSpace(req.Readme) == "" {
		return "", ErrReadmeRequired
	}
	readme, truncated := llm.TruncateToTokens(req.Readme, s.cfg.MaxInputTokens)
	if truncated {
		klog.Warningf("README 超过 token 上限已截断")
	}

	out, err := s.model.Chat(ctx, prompt.ComposeImprove(readme))
	if err != nil {
		return "", err
	}
	return utils.ExtractMarkdown(out), nil
}

func (s *ReadmeService) publishGenerated(ctx context.Context, ownerKey string, info domain.RepoInfo, readme string) {
	if s.bus == nil {
		return
	}
	event := eventbus.ReadmeEvent{
		Type:      eventbus.ReadmeEventGenerated,
		OwnerKey:  ownerKey,
		RepoURL:   canonicalRepoURL(info.URL),
		RepoName:  info.Name,
		RepoOwner: info.Owner,
		Content:   readme,
	}
	// 事件处理失败不影响本次生成结果
	if err := s.bus.Publish(ctx, event); err != nil {
		klog.Errorf("发布生成事件失败: repo=%s, error=%v", info.URL, err)
	}
}

// canonicalRepoURL 同一仓库的不同写法归一成同一个 key
func canonicalRepoURL(raw string) string {
	ref, err := git.ParseReference(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return "https://github.com/" + ref.RepoKey()
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncateForLog(s string) string {
	const limit = 512
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
