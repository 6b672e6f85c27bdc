package service

import "github.com/readmegen/backend/internal/domain"

// Template 预置生成选项
type Template struct {
	Name    string                   `json:"name"`
	Options domain.GenerationOptions `json:"options"`
}

type Presets struct {
	Templates    []Template `json:"templates"`
	Instructions []string   `json:"instructions"`
}

type PresetService struct {
	presets Presets
}

func NewPresetService() *PresetService {
	return &PresetService{presets: Presets{
		Templates: []Template{
			{Name: "React", Options: presetOptions(domain.StyleDetailed)},
			{Name: "Python", Options: presetOptions(domain.StyleBadges, domain.SectionProjectStructure)},
			{Name: "CLI Tool", Options: presetOptions(domain.StyleMinimal,
				domain.SectionTechStack, domain.SectionProjectStructure, domain.SectionContributing, domain.SectionBadges)},
			{Name: "Library", Options: presetOptions(domain.StyleBadges)},
			{Name: "Docs", Options: presetOptions(domain.StyleDetailed, domain.SectionTechStack, domain.SectionBadges)},
		},
		Instructions: []string{
			"Make it more concise",
			"Add more examples",
			"Make it more professional",
			"Add code snippets",
			"Simplify the language",
		},
	}}
}

// List 返回副本，调用方修改不影响预置
func (s *PresetService) List() Presets {
	out := Presets{
		Templates:    make([]Template, 0, len(s.presets.Templates)),
		Instructions: append([]string(nil), s.presets.Instructions...),
	}
	for _, t := range s.presets.Templates {
		sections := make(map[domain.SectionKey]bool, len(t.Options.Sections))
		for k, v := range t.Options.Sections {
			sections[k] = v
		}
		out.Templates = append(out.Templates, Template{
			Name:    t.Name,
			Options: domain.GenerationOptions{Style: t.Options.Style, Sections: sections},
		})
	}
	return out
}

// Find 按名称查找模板
func (s *PresetService) Find(name string) (Template, bool) {
	for _, t := range s.List().Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// presetOptions 全部章节开启，再关闭 disabled 中列出的
func presetOptions(style domain.Style, disabled ...domain.SectionKey) domain.GenerationOptions {
	opts := domain.DefaultOptions()
	opts.Style = style
	for _, key := range disabled {
		opts.Sections[key] = false
	}
	return opts
}
