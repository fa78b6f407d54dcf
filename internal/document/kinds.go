package document

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// EntityKind 标识文档下的子实体集合，同时作为路由段使用。
type EntityKind string

const (
	KindExperience EntityKind = "experience"
	KindEducation  EntityKind = "education"
	KindSkill      EntityKind = "skill"
	KindProject    EntityKind = "project"
	KindLanguage   EntityKind = "language"
)

// Entity 是可独立创建/删除的子实体。
type Entity interface {
	EntityID() uint
	setDocumentID(id string)
}

func (e *Experience) EntityID() uint { return e.ID }
func (e *Education) EntityID() uint  { return e.ID }
func (e *Skill) EntityID() uint      { return e.ID }
func (e *Project) EntityID() uint    { return e.ID }
func (e *Language) EntityID() uint   { return e.ID }

func (e *Experience) setDocumentID(id string) { e.DocumentID = id }
func (e *Education) setDocumentID(id string)  { e.DocumentID = id }
func (e *Skill) setDocumentID(id string)      { e.DocumentID = id }
func (e *Project) setDocumentID(id string)    { e.DocumentID = id }
func (e *Language) setDocumentID(id string)   { e.DocumentID = id }

type fieldType int

const (
	fieldString fieldType = iota
	fieldInt
	fieldBool
)

type column struct {
	name string
	typ  fieldType
}

type kindInfo struct {
	newEntity func() Entity
	columns   map[string]column
}

var orderColumn = column{name: "display_order", typ: fieldInt}

var kindTable = map[EntityKind]kindInfo{
	KindExperience: {
		newEntity: func() Entity { return &Experience{} },
		columns: map[string]column{
			"order":            orderColumn,
			"title":            {name: "title"},
			"companyName":      {name: "company_name"},
			"city":             {name: "city"},
			"state":            {name: "state"},
			"startDate":        {name: "start_date"},
			"endDate":          {name: "end_date"},
			"currentlyWorking": {name: "currently_working", typ: fieldBool},
			"workSummary":      {name: "work_summary"},
		},
	},
	KindEducation: {
		newEntity: func() Entity { return &Education{} },
		columns: map[string]column{
			"order":          orderColumn,
			"universityName": {name: "university_name"},
			"degree":         {name: "degree"},
			"major":          {name: "major"},
			"startDate":      {name: "start_date"},
			"endDate":        {name: "end_date"},
			"description":    {name: "description"},
		},
	},
	KindSkill: {
		newEntity: func() Entity { return &Skill{} },
		columns: map[string]column{
			"name":          {name: "name"},
			"rating":        {name: "rating", typ: fieldInt},
			"category":      {name: "category"},
			"skillOrder":    {name: "skill_order", typ: fieldInt},
			"categoryOrder": {name: "category_order", typ: fieldInt},
		},
	},
	KindProject: {
		newEntity: func() Entity { return &Project{} },
		columns: map[string]column{
			"order":       orderColumn,
			"title":       {name: "title"},
			"url":         {name: "url"},
			"description": {name: "description"},
			"startDate":   {name: "start_date"},
			"endDate":     {name: "end_date"},
		},
	},
	KindLanguage: {
		newEntity: func() Entity { return &Language{} },
		columns: map[string]column{
			"order": orderColumn,
			"name":  {name: "name"},
			"level": {name: "level"},
		},
	},
}

// ParseEntityKind 校验路由段。
func ParseEntityKind(raw string) (EntityKind, error) {
	kind := EntityKind(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := kindTable[kind]; !ok {
		return "", fmt.Errorf("%q: %w", raw, ErrUnknownEntity)
	}
	return kind, nil
}

// NewEntity 返回该类型的空实体，用于绑定请求体。
func (k EntityKind) NewEntity() Entity {
	return kindTable[k].newEntity()
}

// columnUpdates 将 JSON 字段映射为列更新，并做类型收敛。
func (k EntityKind) columnUpdates(fields map[string]any) (map[string]any, error) {
	info := kindTable[k]
	if len(fields) == 0 {
		return nil, invalid("", "no fields to update")
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	updates := make(map[string]any, len(fields))
	for _, key := range keys {
		col, ok := info.columns[key]
		if !ok {
			return nil, invalid(key, "field is not updatable on %s", k)
		}
		value, err := coerce(col.typ, fields[key])
		if err != nil {
			return nil, invalid(key, "%v", err)
		}
		if k == KindSkill && key == "rating" {
			if r := value.(int); r < 0 || r > 5 {
				return nil, invalid(key, "rating must be between 0 and 5")
			}
		}
		if col.typ == fieldInt && col.name != "rating" && value.(int) < 0 {
			return nil, invalid(key, "must not be negative")
		}
		updates[col.name] = value
	}
	return updates, nil
}

func coerce(typ fieldType, raw any) (any, error) {
	switch typ {
	case fieldString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string")
		}
		return s, nil
	case fieldBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean")
		}
		return b, nil
	case fieldInt:
		switch n := raw.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("expected integer")
			}
			return int(n), nil
		}
		return nil, fmt.Errorf("expected integer")
	}
	return nil, fmt.Errorf("unsupported field type")
}
