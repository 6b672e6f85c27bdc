package domain

import "strings"

// Style README 风格
type Style string

const (
	StyleMinimal  Style = "minimal"
	StyleDetailed Style = "detailed"
	StyleBadges   Style = "badges"
)

// ParseStyle 未知或为空的风格按 detailed 处理
func ParseStyle(s string) Style {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleMinimal:
		return StyleMinimal
	case StyleBadges:
		return StyleBadges
	default:
		return StyleDetailed
	}
}

// SectionKey 可选章节标识
type SectionKey string

const (
	SectionBadges           SectionKey = "badges"
	SectionFeatures         SectionKey = "features"
	SectionTechStack        SectionKey = "techStack"
	SectionInstallation     SectionKey = "installation"
	SectionUsage            SectionKey = "usage"
	SectionProjectStructure SectionKey = "projectStructure"
	SectionContributing     SectionKey = "contributing"
	SectionLicense          SectionKey = "license"
)

// SectionOrder 章节在提示词中的固定顺序
var SectionOrder = []SectionKey{
	SectionBadges,
	SectionFeatures,
	SectionTechStack,
	SectionInstallation,
	SectionUsage,
	SectionProjectStructure,
	SectionContributing,
	SectionLicense,
}

// GenerationOptions 生成选项，只是请求配置，不落库
type GenerationOptions struct {
	Style    Style               `json:"style"`
	Sections map[SectionKey]bool `json:"sections"`
}

// DefaultOptions 全部章节 + detailed 风格
func DefaultOptions() GenerationOptions {
	sections := make(map[SectionKey]bool, len(SectionOrder))
	for _, key := range SectionOrder {
		sections[key] = true
	}
	return GenerationOptions{Style: StyleDetailed, Sections: sections}
}

// Normalize 校验风格并丢弃未知章节
func (o GenerationOptions) Normalize() GenerationOptions {
	normalized := GenerationOptions{
		Style:    ParseStyle(string(o.Style)),
		Sections: make(map[SectionKey]bool, len(SectionOrder)),
	}
	for _, key := range SectionOrder {
		normalized.Sections[key] = o.Includes(key)
	}
	return normalized
}

// Includes 未显式给出的章节默认包含
func (o GenerationOptions) Includes(key SectionKey) bool {
	if o.Sections == nil {
		return true
	}
	included, ok := o.Sections[key]
	if !ok {
		return true
	}
	return included
}

// EnabledSections 按固定顺序返回启用的章节
func (o GenerationOptions) EnabledSections() []SectionKey {
	var keys []SectionKey
	for _, key := range SectionOrder {
		if o.Includes(key) {
			keys = append(keys, key)
		}
	}
	return keys
}
