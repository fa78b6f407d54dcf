package document

import (
	"strings"
)

// Patch 是 PATCH /documents/:id 的请求体。nil 字段表示保持不变。
// 数组字段按 upsert 处理：带 id 的更新，不带 id 的插入。
type Patch struct {
	Title              *string          `json:"title,omitempty"`
	Status             *Status          `json:"status,omitempty"`
	Summary            *string          `json:"summary,omitempty"`
	Thumbnail          *string          `json:"thumbnail,omitempty"`
	ThemeColor         *string          `json:"themeColor,omitempty"`
	CurrentPosition    *int             `json:"currentPosition,omitempty"`
	PersonalInfo       *PersonalInfo    `json:"personalInfo,omitempty"`
	Experiences        *[]Experience    `json:"experience,omitempty"`
	Educations         *[]Education     `json:"education,omitempty"`
	Skills             *[]Skill         `json:"skills,omitempty"`
	Projects           *[]Project       `json:"projects,omitempty"`
	Languages          *[]Language      `json:"languages,omitempty"`
	PersonalInfoFormat *string          `json:"personalInfoFormat,omitempty"`
	SkillsFormat       *string          `json:"skillsFormat,omitempty"`
	PageOrder          *[]SectionKey    `json:"pageOrder,omitempty"`
	SectionPaddings    *SectionPaddings `json:"sectionPaddings,omitempty"`
	Direction          *string          `json:"direction,omitempty"`
	Locale             *string          `json:"locale,omitempty"`
}

// Keys 返回请求携带的顶层字段名（JSON 键），顺序固定。
func (p Patch) Keys() []string {
	fields := []struct {
		key string
		set bool
	}{
		{"title", p.Title != nil},
		{"status", p.Status != nil},
		{"summary", p.Summary != nil},
		{"thumbnail", p.Thumbnail != nil},
		{"themeColor", p.ThemeColor != nil},
		{"currentPosition", p.CurrentPosition != nil},
		{"personalInfo", p.PersonalInfo != nil},
		{"experience", p.Experiences != nil},
		{"education", p.Educations != nil},
		{"skills", p.Skills != nil},
		{"projects", p.Projects != nil},
		{"languages", p.Languages != nil},
		{"personalInfoFormat", p.PersonalInfoFormat != nil},
		{"skillsFormat", p.SkillsFormat != nil},
		{"pageOrder", p.PageOrder != nil},
		{"sectionPaddings", p.SectionPaddings != nil},
		{"direction", p.Direction != nil},
		{"locale", p.Locale != nil},
	}
	var keys []string
	for _, f := range fields {
		if f.set {
			keys = append(keys, f.key)
		}
	}
	return keys
}

// Empty 判断请求是否未携带任何字段。
func (p Patch) Empty() bool {
	return len(p.Keys()) == 0
}

// Validate 在任何写入之前检查请求形状。
func (p Patch) Validate() error {
	if p.Empty() {
		return invalid("", "no fields to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("title", "must not be blank")
	}
	if p.Status != nil && !p.Status.Valid() {
		return invalid("status", "unknown status %q", *p.Status)
	}
	if p.CurrentPosition != nil && *p.CurrentPosition < 0 {
		return invalid("currentPosition", "must not be negative")
	}
	if p.PageOrder != nil {
		if err := ValidatePageOrder(*p.PageOrder); err != nil {
			return err
		}
	}
	if p.SectionPaddings != nil {
		for key, padding := range *p.SectionPaddings {
			if !key.Valid() {
				return invalid("sectionPaddings", "unknown section %q", key)
			}
			if padding.Top < 0 || padding.Bottom < 0 {
				return invalid("sectionPaddings", "padding for %q must not be negative", key)
			}
		}
	}
	if p.Direction != nil {
		switch *p.Direction {
		case "ltr", "rtl":
		default:
			return invalid("direction", "must be ltr or rtl")
		}
	}
	if p.Skills != nil {
		for _, s := range *p.Skills {
			if s.Rating < 0 || s.Rating > 5 {
				return invalid("skills", "rating must be between 0 and 5")
			}
		}
	}
	return nil
}

// ValidatePageOrder 要求每个分区已知且唯一。
func ValidatePageOrder(order []SectionKey) error {
	seen := make(map[SectionKey]struct{}, len(order))
	for _, key := range order {
		if !key.Valid() {
			return invalid("pageOrder", "unknown section %q", key)
		}
		if _, dup := seen[key]; dup {
			return invalid("pageOrder", "duplicate section %q", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
