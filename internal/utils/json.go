package utils

import (
	"regexp"
	"strings"

	"k8s.io/klog/v2"
)

var (
	fencedJSONPattern     = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")
	fencedMarkdownPattern = regexp.MustCompile("^```(?:markdown|md)?[ \\t]*\\r?\\n([\\s\\S]*?)\\r?\\n?```\\s*$")
)

// ExtractJSON 从模型输出中提取 JSON。
// 优先取第一个代码块的内容，否则取第一个完整的 {...}。
func ExtractJSON(content string) string {
	if m := fencedJSONPattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	start := -1
	end := -1
	depth := 0
	inString := false
	escaped := false

	for i, ch := range content {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start != -1 {
				end = i + 1
			}
		}
		if end > 0 {
			break
		}
	}

	if start >= 0 && end > start {
		return content[start:end]
	}
	return strings.TrimSpace(content)
}

// ExtractMarkdown 整段输出被 ```markdown 包裹时去掉外层代码块，否则原样返回
func ExtractMarkdown(content string) string {
	trimmed := strings.TrimSpace(content)
	if m := fencedMarkdownPattern.FindStringSubmatch(trimmed); m != nil {
		klog.V(6).Infof("[ExtractMarkdown] 去掉外层 Markdown 代码块")
		return m[1]
	}
	return content
}
