package document

import (
	"time"

	"gorm.io/datatypes"
)

// Status 表示简历文档的可见性/生命周期。
type Status string

const (
	StatusPrivate  Status = "private"
	StatusPublic   Status = "public"
	StatusArchived Status = "archived"
)

// Valid 判断状态是否为已知取值。
func (s Status) Valid() bool {
	switch s {
	case StatusPrivate, StatusPublic, StatusArchived:
		return true
	}
	return false
}

// SectionKey 标识页面中的一个分区，用于排序与间距配置。
type SectionKey string

const (
	SectionPersonalInfo SectionKey = "personal-info"
	SectionSummary      SectionKey = "summary"
	SectionExperience   SectionKey = "experience"
	SectionEducation    SectionKey = "education"
	SectionSkills       SectionKey = "skills"
	SectionProjects     SectionKey = "projects"
	SectionLanguages    SectionKey = "languages"
)

// DefaultPageOrder 新建文档时的分区顺序。
func DefaultPageOrder() []SectionKey {
	return []SectionKey{
		SectionPersonalInfo,
		SectionSummary,
		SectionExperience,
		SectionEducation,
		SectionSkills,
		SectionProjects,
		SectionLanguages,
	}
}

// Valid 判断分区是否已知。
func (k SectionKey) Valid() bool {
	for _, known := range DefaultPageOrder() {
		if k == known {
			return true
		}
	}
	return false
}

// Padding 描述分区上下留白（px）。
type Padding struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// SectionPaddings 按分区存储留白，JSONB 列。
type SectionPaddings map[SectionKey]Padding

// Document 是简历聚合根。子实体通过 DocumentID 关联。
type Document struct {
	ID                 string                              `gorm:"primaryKey;size:36" json:"id"`
	UserID             uint                                `gorm:"index" json:"userId"`
	Title              string                              `gorm:"size:255" json:"title"`
	Summary            string                              `gorm:"type:text" json:"summary"`
	ThemeColor         string                              `gorm:"size:32" json:"themeColor"`
	Thumbnail          string                              `gorm:"size:512" json:"thumbnail"`
	CurrentPosition    int                                 `json:"currentPosition"`
	Status             Status                              `gorm:"size:16;index" json:"status"`
	PageOrder          datatypes.JSONSlice[SectionKey]     `gorm:"type:jsonb" json:"pageOrder"`
	SectionPaddings    datatypes.JSONType[SectionPaddings] `gorm:"type:jsonb" json:"sectionPaddings"`
	PersonalInfoFormat string                              `gorm:"size:32" json:"personalInfoFormat"`
	SkillsFormat       string                              `gorm:"size:32" json:"skillsFormat"`
	Direction          string                              `gorm:"size:8" json:"direction"`
	Locale             string                              `gorm:"size:16" json:"locale"`
	CreatedAt          time.Time                           `json:"createdAt"`
	UpdatedAt          time.Time                           `gorm:"index" json:"updatedAt"`

	PersonalInfo *PersonalInfo `gorm:"foreignKey:DocumentID" json:"personalInfo"`
	Experiences  []Experience  `gorm:"foreignKey:DocumentID" json:"experience"`
	Educations   []Education   `gorm:"foreignKey:DocumentID" json:"education"`
	Skills       []Skill       `gorm:"foreignKey:DocumentID" json:"skills"`
	Projects     []Project     `gorm:"foreignKey:DocumentID" json:"projects"`
	Languages    []Language    `gorm:"foreignKey:DocumentID" json:"languages"`
}

// PersonalInfo 每个文档至多一条。
type PersonalInfo struct {
	ID         uint   `gorm:"primaryKey" json:"id,omitempty"`
	DocumentID string `gorm:"uniqueIndex;size:36" json:"documentId,omitempty"`
	FirstName  string `gorm:"size:128" json:"firstName"`
	LastName   string `gorm:"size:128" json:"lastName"`
	JobTitle   string `gorm:"size:255" json:"jobTitle"`
	Address    string `gorm:"size:512" json:"address"`
	Phone      string `gorm:"size:64" json:"phone"`
	Email      string `gorm:"size:255" json:"email"`
	Website    string `gorm:"size:512" json:"website"`
}

// Experience 工作经历。
type Experience struct {
	ID               uint   `gorm:"primaryKey" json:"id,omitempty"`
	DocumentID       string `gorm:"index;size:36" json:"documentId,omitempty"`
	Order            int    `gorm:"column:display_order" json:"order"`
	Title            string `gorm:"size:255" json:"title"`
	CompanyName      string `gorm:"size:255" json:"companyName"`
	City             string `gorm:"size:128" json:"city"`
	State            string `gorm:"size:128" json:"state"`
	StartDate        string `gorm:"size:32" json:"startDate"`
	EndDate          string `gorm:"size:32" json:"endDate"`
	CurrentlyWorking bool   `json:"currentlyWorking"`
	WorkSummary      string `gorm:"type:text" json:"workSummary"`
}

// Education 教育经历。
type Education struct {
	ID             uint   `gorm:"primaryKey" json:"id,omitempty"`
	DocumentID     string `gorm:"index;size:36" json:"documentId,omitempty"`
	Order          int    `gorm:"column:display_order" json:"order"`
	UniversityName string `gorm:"size:255" json:"universityName"`
	Degree         string `gorm:"size:255" json:"degree"`
	Major          string `gorm:"size:255" json:"major"`
	StartDate      string `gorm:"size:32" json:"startDate"`
	EndDate        string `gorm:"size:32" json:"endDate"`
	Description    string `gorm:"type:text" json:"description"`
}

// Skill 技能。Category 为自由文本，同名即同组。
type Skill struct {
	ID            uint   `gorm:"primaryKey" json:"id,omitempty"`
	DocumentID    string `gorm:"index;size:36" json:"documentId,omitempty"`
	Name          string `gorm:"size:128" json:"name"`
	Rating        int    `json:"rating"`
	Category      string `gorm:"size:128" json:"category"`
	SkillOrder    int    `json:"skillOrder"`
	CategoryOrder int    `json:"categoryOrder"`
}

// Project 项目经历。
type Project struct {
	ID          uint   `gorm:"primaryKey" json:"id,omitempty"`
	DocumentID  string `gorm:"index;size:36" json:"documentId,omitempty"`
	Order       int    `gorm:"column:display_order" json:"order"`
	Title       string `gorm:"size:255" json:"title"`
	URL         string `gorm:"size:512" json:"url"`
	Description string `gorm:"type:text" json:"description"`
	StartDate   string `gorm:"size:32" json:"startDate"`
	EndDate     string `gorm:"size:32" json:"endDate"`
}

// Language 语言能力。
type Language struct {
	ID         uint   `gorm:"primaryKey" json:"id,omitempty"`
	DocumentID string `gorm:"index;size:36" json:"documentId,omitempty"`
	Order      int    `gorm:"column:display_order" json:"order"`
	Name       string `gorm:"size:128" json:"name"`
	Level      string `gorm:"size:64" json:"level"`
}

// Models 返回需要迁移的全部表模型。
func Models() []any {
	return []any{
		&Document{},
		&PersonalInfo{},
		&Experience{},
		&Education{},
		&Skill{},
		&Project{},
		&Language{},
	}
}
