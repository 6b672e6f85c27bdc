package prompt

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/readmegen/backend/internal/domain"
	"github.com/readmegen/backend/internal/pkg/github"
)

const systemIntro = "You are an expert technical writer who creates beautiful, comprehensive README.md files for GitHub repositories."

// 风格对应的指令
var styleInstructions = map[domain.Style]string{
	domain.StyleMinimal:  "Keep the README minimal and concise. Prefer short paragraphs and only the essential sections, avoid decorative elements.",
	domain.StyleBadges:   "Make heavy use of shields.io badge markup: add badges for build status, license, language, stars, forks, version and the tech stack.",
	domain.StyleDetailed: "Be comprehensive. Cover every requested section in depth, with step-by-step instructions and concrete code examples.",
}

// 章节对应的指令，顺序由 domain.SectionOrder 决定
var sectionInstructions = map[domain.SectionKey]string{
	domain.SectionBadges:           "Badges (build status placeholder, license, language, stars)",
	domain.SectionFeatures:         "Key features (bulleted list with emojis)",
	domain.SectionTechStack:        "Tech stack with icons/badges",
	domain.SectionInstallation:     "Prerequisites and installation instructions (step-by-step)",
	domain.SectionUsage:            "Usage examples with code blocks",
	domain.SectionProjectStructure: "Project structure (simplified tree)",
	domain.SectionContributing:     "Contributing guidelines",
	domain.SectionLicense:          "License",
}

// Compose 根据仓库上下文和生成选项构造 system/user 两条消息，无副作用
func Compose(rc *github.RepositoryContext, opts domain.GenerationOptions) []*schema.Message {
	opts = opts.Normalize()
	return []*schema.Message{
		schema.SystemMessage(systemPrompt(opts)),
		schema.UserMessage(userPrompt(rc)),
	}
}

func systemPrompt(opts domain.GenerationOptions) string {
	var b strings.Builder
	b.WriteString(systemIntro)
	b.WriteString("\n\n")
	b.WriteString(styleInstructions[opts.Style])
	b.WriteString("\n\nYour README must include:\n")

	// 标题和描述始终必需
	items := []string{
		"A catchy project title with an emoji",
		"A compelling description",
	}
	for _, key := range opts.EnabledSections() {
		items = append(items, sectionInstructions[key])
	}
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}

	b.WriteString("\nDo not add sections that are not listed above.\n")
	b.WriteString("Use proper markdown formatting, code blocks with language hints, and make it visually appealing.\n")
	b.WriteString("Be specific to the project's actual technology stack and infer functionality from the file structure and dependencies.")
	return b.String()
}

func userPrompt(rc *github.RepositoryContext) string {
	topics := "None"
	if len(rc.Topics) > 0 {
		topics = strings.Join(rc.Topics, ", ")
	}
	dependencies := "Not available"
	if len(rc.Dependencies) > 0 {
		dependencies = strings.Join(rc.Dependencies, ", ")
	}

	var b strings.Builder
	b.WriteString("Generate a professional README.md for this GitHub repository:\n\n")
	fmt.Fprintf(&b, "**Repository:** %s\n", rc.Name)
	fmt.Fprintf(&b, "**Owner:** %s\n", rc.Owner)
	fmt.Fprintf(&b, "**Description:** %s\n", rc.Description)
	fmt.Fprintf(&b, "**Main Language:** %s\n", rc.Language)
	fmt.Fprintf(&b, "**All Languages:** %s\n", strings.Join(rc.Languages, ", "))
	fmt.Fprintf(&b, "**Topics/Tags:** %s\n", topics)
	fmt.Fprintf(&b, "**License:** %s\n", rc.License)
	fmt.Fprintf(&b, "**Stars:** %d | **Forks:** %d\n", rc.Stars, rc.Forks)
	fmt.Fprintf(&b, "**URL:** %s\n", rc.URL)
	fmt.Fprintf(&b, "**Default Branch:** %s\n\n", rc.DefaultBranch)
	fmt.Fprintf(&b, "**File Structure:**\n%s\n\n", rc.RenderFileTree())
	fmt.Fprintf(&b, "**Dependencies/Packages:** %s\n\n", dependencies)
	b.WriteString("**Package Managers Detected:**\n")
	for _, manager := range rc.DetectedPackageManagers() {
		fmt.Fprintf(&b, "- %s\n", manager)
	}
	b.WriteString("\nGenerate a complete, production-ready README.md file now. ")
	b.WriteString("Make reasonable inferences about the project's purpose and features based on its name, description, languages, and dependencies.")
	return b.String()
}

// SectionRegeneration 单章节重新生成的输入
type SectionRegeneration struct {
	Section        string
	SectionContent string
	// Level 章节标题的 # 个数，0 时按二级标题处理
	Level       int
	RepoInfo    domain.RepoInfo
	Instruction string
}

// ComposeSectionRegeneration 只重写一个章节的提示词，单条 user 消息
func ComposeSectionRegeneration(req SectionRegeneration) []*schema.Message {
	content := req.SectionContent
	if strings.TrimSpace(content) == "" {
		content = "No existing content"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert technical writer. Regenerate ONLY the %q section for a GitHub README.\n\n", req.Section)
	fmt.Fprintf(&b, "**Repository:** %s\n", req.RepoInfo.Name)
	fmt.Fprintf(&b, "**Owner:** %s\n", req.RepoInfo.Owner)
	fmt.Fprintf(&b, "**Description:** %s\n", req.RepoInfo.Description)
	fmt.Fprintf(&b, "**Main Language:** %s\n\n", req.RepoInfo.Language)
	fmt.Fprintf(&b, "**Current section content:**\n%s\n\n", content)
	if instruction := strings.TrimSpace(req.Instruction); instruction != "" {
		fmt.Fprintf(&b, "**User instruction:** %s\n\n", instruction)
	}
	b.WriteString("Generate an improved, polished version of just this section. ")
	level := headingLevel(req.Level)
	fmt.Fprintf(&b, "Start directly with the section heading (exactly %d `#`, i.e. %q) and content. ", level, strings.Repeat("#", level))
	b.WriteString("Do not include any other sections. ")
	b.WriteString("Make it engaging, clear, and professional.")

	return []*schema.Message{schema.UserMessage(b.String())}
}

func headingLevel(level int) int {
	if level < 1 || level > 3 {
		return 2
	}
	return level
}

const scoreSystemPrompt = `You are an expert README quality analyzer. Score the README out of 100 and provide actionable suggestions.

Return ONLY valid JSON in this exact format:
{
  "score": <number 0-100>,
  "suggestions": ["suggestion 1", "suggestion 2"],
  "breakdown": [
    {"category": "Structure", "score": <0-20>, "max": 20, "notes": "..."},
    {"category": "Completeness", "score": <0-25>, "max": 25, "notes": "..."},
    {"category": "Clarity", "score": <0-20>, "max": 20, "notes": "..."},
    {"category": "Code Examples", "score": <0-15>, "max": 15, "notes": "..."},
    {"category": "Visual Appeal", "score": <0-20>, "max": 20, "notes": "..."}
  ]
}`

// ComposeScore README 打分提示词
func ComposeScore(readme, repoName string) []*schema.Message {
	if strings.TrimSpace(repoName) == "" {
		repoName = "a project"
	}
	return []*schema.Message{
		schema.SystemMessage(scoreSystemPrompt),
		schema.UserMessage(fmt.Sprintf("Score this README for %q:\n\n%s", repoName, readme)),
	}
}

const improveSystemPrompt = `You are an expert technical writer. Improve the given README while keeping its overall structure intact.

Rules:
- Maintain the same sections and headings
- Improve clarity, grammar, formatting
- Add missing best practices (badges, better code examples, etc.)
- Make descriptions more compelling
- Fix any markdown formatting issues
- Return ONLY the improved markdown, no explanations`

// ComposeImprove 整体润色提示词
func ComposeImprove(readme string) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(improveSystemPrompt),
		schema.UserMessage("Improve this README:\n\n" + readme),
	}
}
