package section

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// IntroductionTitle 首个标题之前内容所在的合成章节
const IntroductionTitle = "Introduction"

var (
	headingPattern    = regexp.MustCompile(`^(#{1,3})\s+(.+)$`)
	anyHeadingPattern = regexp.MustCompile(`^\s*(#{1,6})\s+(.+)$`)
)

// Section 按标题切分出的章节，行号从 0 开始且为闭区间。
// 章节只针对某一份 markdown 快照有效，内容变化后必须重新切分。
type Section struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Level     int    `json:"level"`
	Content   string `json:"content"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// Segment 单次遍历切分 markdown。
// 1~3 级标题是章节边界，代码块内的 "#" 行不算标题。
func Segment(markdown string) []Section {
	if markdown == "" {
		return []Section{}
	}
	lines := strings.Split(markdown, "\n")

	var (
		sections []Section
		open     *Section
		inFence  bool
		introEnd = -1
	)
	closeOpen := func(end int) {
		if open == nil {
			return
		}
		open.EndLine = end
		open.Content = strings.Join(lines[open.StartLine:end+1], "\n")
		sections = append(sections, *open)
		open = nil
	}

	for i, line := range lines {
		if isFence(line) {
			inFence = !inFence
		}
		if inFence || isFence(line) {
			if open == nil {
				introEnd = i
			}
			continue
		}

		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			if open == nil {
				introEnd = i
			}
			continue
		}
		closeOpen(i - 1)
		open = &Section{
			Title:     SanitizeTitle(m[2]),
			Level:     len(m[1]),
			StartLine: i,
		}
	}
	closeOpen(len(lines) - 1)

	// 首个标题前的内容只生成一次合成章节，且不与显式的同名章节冲突
	if introEnd >= 0 && hasText(lines[:introEnd+1]) && !hasTitle(sections, IntroductionTitle) {
		intro := Section{
			Title:     IntroductionTitle,
			Level:     0,
			StartLine: 0,
			EndLine:   introEnd,
			Content:   strings.Join(lines[:introEnd+1], "\n"),
		}
		sections = append([]Section{intro}, sections...)
	}

	for i := range sections {
		sections[i].ID = slug(sections[i].Title) + "-" + strconv.Itoa(i)
	}
	return sections
}

// SanitizeTitle 去掉字母、数字和空白以外的字符
func SanitizeTitle(heading string) string {
	var b strings.Builder
	for _, r := range heading {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// FindByTitle 按标题查找，同名章节只返回第一个
func FindByTitle(sections []Section, title string) (Section, bool) {
	want := SanitizeTitle(title)
	for _, s := range sections {
		if strings.EqualFold(s.Title, want) {
			return s, true
		}
	}
	return Section{}, false
}

// FindByID 按 ID 查找
func FindByID(sections []Section, id string) (Section, bool) {
	for _, s := range sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// NormalizeHeading 把 content 第一个非空行的标题标记改成 level 个 #。
// level 不在 1~3 或首行不是标题时原样返回。
func NormalizeHeading(content string, level int) string {
	if level < 1 || level > 3 {
		return content
	}
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := anyHeadingPattern.FindStringSubmatch(line)
		if m == nil {
			return content
		}
		lines[i] = strings.Repeat("#", level) + " " + m[2]
		return strings.Join(lines, "\n")
	}
	return content
}

// Splice 用 replacement 替换 sec 覆盖的行，非空部分以换行连接
func Splice(markdown string, sec Section, replacement string) string {
	lines := strings.Split(markdown, "\n")
	start, end := sec.StartLine, sec.EndLine
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if end < start-1 {
		end = start - 1
	}

	parts := make([]string, 0, 3)
	if before := strings.Join(lines[:start], "\n"); before != "" {
		parts = append(parts, before)
	}
	if replacement != "" {
		parts = append(parts, replacement)
	}
	if after := strings.Join(lines[end+1:], "\n"); after != "" {
		parts = append(parts, after)
	}
	return strings.Join(parts, "\n")
}

func isFence(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

func hasTitle(sections []Section, title string) bool {
	_, ok := FindByTitle(sections, title)
	return ok
}

func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "section"
	}
	return s
}
