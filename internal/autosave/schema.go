package autosave

import (
	"context"

	"resumeStudio/internal/document"
)

// Schema 描述一种子实体集合，List 通过它泛化增删与排序。
type Schema[T any] struct {
	Kind document.EntityKind
	// DocumentKey 是该集合在文档 PATCH 中的字段名。
	DocumentKey string
	// OrderKey 是排序字段在实体 PATCH 中的字段名。
	OrderKey string

	ID       func(T) uint
	Order    func(T) int
	SetOrder func(*T, int)
	// Scope 返回排序作用域，nil 表示整个集合一个作用域。
	Scope func(T) string
	New   func() T
	// Place 在新实体追加前按已有条目补全作用域外的排序字段，可为 nil。
	Place func(existing []T, v *T)
	// Delete 覆盖默认的删除路由。
	Delete func(ctx context.Context, c EntityClient, documentID string, id uint) error
}

func (s Schema[T]) scope(v T) string {
	if s.Scope == nil {
		return ""
	}
	return s.Scope(v)
}

func (s Schema[T]) remove(ctx context.Context, c EntityClient, documentID string, id uint) error {
	if s.Delete != nil {
		return s.Delete(ctx, c, documentID, id)
	}
	return c.DeleteEntity(ctx, documentID, s.Kind, id)
}

var ExperienceSchema = Schema[document.Experience]{
	Kind:        document.KindExperience,
	DocumentKey: "experience",
	OrderKey:    "order",
	ID:          func(e document.Experience) uint { return e.ID },
	Order:       func(e document.Experience) int { return e.Order },
	SetOrder:    func(e *document.Experience, n int) { e.Order = n },
	New:         func() document.Experience { return document.Experience{} },
}

var EducationSchema = Schema[document.Education]{
	Kind:        document.KindEducation,
	DocumentKey: "education",
	OrderKey:    "order",
	ID:          func(e document.Education) uint { return e.ID },
	Order:       func(e document.Education) int { return e.Order },
	SetOrder:    func(e *document.Education, n int) { e.Order = n },
	New:         func() document.Education { return document.Education{} },
}

// SkillSchema 在同一分类内按 skillOrder 排序。
var SkillSchema = Schema[document.Skill]{
	Kind:        document.KindSkill,
	DocumentKey: "skills",
	OrderKey:    "skillOrder",
	ID:          func(s document.Skill) uint { return s.ID },
	Order:       func(s document.Skill) int { return s.SkillOrder },
	SetOrder:    func(s *document.Skill, n int) { s.SkillOrder = n },
	Scope:       func(s document.Skill) string { return s.Category },
	New:         func() document.Skill { return document.Skill{Rating: 3} },
	Place:       placeSkill,
}

// placeSkill 让新技能沿用所在分类的 categoryOrder，新分类排在最后。
func placeSkill(existing []document.Skill, s *document.Skill) {
	next := 0
	for _, e := range existing {
		if e.Category == s.Category {
			s.CategoryOrder = e.CategoryOrder
			return
		}
		next = max(next, e.CategoryOrder+1)
	}
	s.CategoryOrder = next
}

var ProjectSchema = Schema[document.Project]{
	Kind:        document.KindProject,
	DocumentKey: "projects",
	OrderKey:    "order",
	ID:          func(p document.Project) uint { return p.ID },
	Order:       func(p document.Project) int { return p.Order },
	SetOrder:    func(p *document.Project, n int) { p.Order = n },
	New:         func() document.Project { return document.Project{} },
}

// LanguageSchema 使用独立的语言删除路由。
var LanguageSchema = Schema[document.Language]{
	Kind:        document.KindLanguage,
	DocumentKey: "languages",
	OrderKey:    "order",
	ID:          func(l document.Language) uint { return l.ID },
	Order:       func(l document.Language) int { return l.Order },
	SetOrder:    func(l *document.Language, n int) { l.Order = n },
	New:         func() document.Language { return document.Language{} },
	Delete: func(ctx context.Context, c EntityClient, _ string, id uint) error {
		return c.DeleteLanguage(ctx, id)
	},
}
