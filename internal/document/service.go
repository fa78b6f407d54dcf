package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultThemeColor = "#7c3aed"
	defaultFormat     = "default"
)

// Service 封装文档聚合的持久化逻辑。
type Service struct {
	db           *gorm.DB
	maxDocuments int
	now          func() time.Time
	newID        func() string
}

// Option 调整 Service 行为，主要用于测试。
type Option func(*Service)

// WithMaxDocuments 限制每个用户的非归档文档数量，0 表示不限。
func WithMaxDocuments(n int) Option {
	return func(s *Service) { s.maxDocuments = n }
}

// WithClock 替换时间源。
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator 替换文档 ID 生成器。
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// NewService 构造 Service。
func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create 创建一份仅有标题的空文档。
func (s *Service) Create(ctx context.Context, userID uint, title string) (*Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("title", "must not be blank")
	}

	if s.maxDocuments > 0 {
		var count int64
		if err := s.db.WithContext(ctx).
			Model(&Document{}).
			Where("user_id = ? AND status <> ?", userID, StatusArchived).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count documents: %w", err)
		}
		if count >= int64(s.maxDocuments) {
			return nil, ErrLimitReached
		}
	}

	now := s.now()
	doc := Document{
		ID:                 s.newID(),
		UserID:             userID,
		Title:              title,
		ThemeColor:         defaultThemeColor,
		Status:             StatusPrivate,
		PageOrder:          datatypes.NewJSONSlice(DefaultPageOrder()),
		SectionPaddings:    datatypes.NewJSONType(SectionPaddings{}),
		PersonalInfoFormat: defaultFormat,
		SkillsFormat:       defaultFormat,
		Direction:          "ltr",
		Locale:             "en",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return s.load(ctx, s.db, doc.ID)
}

// Get 返回用户自己的完整文档聚合。
func (s *Service) Get(ctx context.Context, userID uint, id string) (*Document, error) {
	if _, err := s.owned(ctx, s.db, userID, id); err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, id)
}

// GetPublic 不校验归属，只返回 status=public 的文档。
func (s *Service) GetPublic(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.db.WithContext(ctx).
		Select("id").
		Where("id = ? AND status = ?", id, StatusPublic).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotPublic
	}
	if err != nil {
		return nil, fmt.Errorf("query public document: %w", err)
	}
	return s.load(ctx, s.db, id)
}

// List 返回用户全部未归档文档（不含子实体）。
func (s *Service) List(ctx context.Context, userID uint) ([]Document, error) {
	return s.list(ctx, "user_id = ? AND status <> ?", userID, StatusArchived)
}

// ListArchived 返回回收站内容。
func (s *Service) ListArchived(ctx context.Context, userID uint) ([]Document, error) {
	return s.list(ctx, "user_id = ? AND status = ?", userID, StatusArchived)
}

func (s *Service) list(ctx context.Context, query string, args ...any) ([]Document, error) {
	var docs []Document
	if err := s.db.WithContext(ctx).
		Preload("PersonalInfo").
		Where(query, args...).
		Order("updated_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Update 应用部分更新；未出现的字段保持不变。
func (s *Service) Update(ctx context.Context, userID uint, id string, patch Patch) (*Document, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(ctx, tx, userID, id); err != nil {
			return err
		}

		updates := scalarUpdates(patch)
		updates["updated_at"] = s.now()
		if err := tx.Model(&Document{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		if patch.PersonalInfo != nil {
			if err := upsertPersonalInfo(tx, id, *patch.PersonalInfo); err != nil {
				return err
			}
		}
		if patch.Experiences != nil {
			if err := upsertChildren(tx, id, *patch.Experiences); err != nil {
				return err
			}
		}
		if patch.Educations != nil {
			if err := upsertChildren(tx, id, *patch.Educations); err != nil {
				return err
			}
		}
		if patch.Skills != nil {
			if err := upsertChildren(tx, id, *patch.Skills); err != nil {
				return err
			}
		}
		if patch.Projects != nil {
			if err := upsertChildren(tx, id, *patch.Projects); err != nil {
				return err
			}
		}
		if patch.Languages != nil {
			if err := upsertChildren(tx, id, *patch.Languages); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, id)
}

func scalarUpdates(p Patch) map[string]any {
	updates := map[string]any{}
	if p.Title != nil {
		updates["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Status != nil {
		updates["status"] = *p.Status
	}
	if p.Summary != nil {
		updates["summary"] = *p.Summary
	}
	if p.Thumbnail != nil {
		updates["thumbnail"] = *p.Thumbnail
	}
	if p.ThemeColor != nil {
		updates["theme_color"] = *p.ThemeColor
	}
	if p.CurrentPosition != nil {
		updates["current_position"] = *p.CurrentPosition
	}
	if p.PersonalInfoFormat != nil {
		updates["personal_info_format"] = *p.PersonalInfoFormat
	}
	if p.SkillsFormat != nil {
		updates["skills_format"] = *p.SkillsFormat
	}
	if p.PageOrder != nil {
		updates["page_order"] = datatypes.NewJSONSlice(*p.PageOrder)
	}
	if p.SectionPaddings != nil {
		updates["section_paddings"] = datatypes.NewJSONType(*p.SectionPaddings)
	}
	if p.Direction != nil {
		updates["direction"] = *p.Direction
	}
	if p.Locale != nil {
		updates["locale"] = *p.Locale
	}
	return updates
}

func upsertPersonalInfo(tx *gorm.DB, documentID string, info PersonalInfo) error {
	var existing PersonalInfo
	err := tx.Where("document_id = ?", documentID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		info.ID = 0
		info.DocumentID = documentID
		if err := tx.Create(&info).Error; err != nil {
			return fmt.Errorf("create personal info: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("query personal info: %w", err)
	}

	info.ID = existing.ID
	info.DocumentID = documentID
	if err := tx.Model(&existing).Select("*").Omit("ID", "DocumentID").Updates(&info).Error; err != nil {
		return fmt.Errorf("update personal info: %w", err)
	}
	return nil
}

// upsertChildren 带 id 的条目在所属文档内更新，不带 id 的插入。
func upsertChildren[T any, PT interface {
	*T
	Entity
}](tx *gorm.DB, documentID string, items []T) error {
	for i := range items {
		item := PT(&items[i])
		item.setDocumentID(documentID)
		if item.EntityID() == 0 {
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("insert child: %w", err)
			}
			continue
		}
		res := tx.Model(item).
			Where("document_id = ?", documentID).
			Select("*").
			Omit("ID", "DocumentID").
			Updates(item)
		if res.Error != nil {
			return fmt.Errorf("update child %d: %w", item.EntityID(), res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound("child", item.EntityID())
		}
	}
	return nil
}

// Restore 将回收站中的文档恢复为 private。
func (s *Service) Restore(ctx context.Context, userID uint, id string) (*Document, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.owned(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if doc.Status != StatusArchived {
			return ErrNotArchived
		}
		return tx.Model(&Document{}).Where("id = ?", id).Updates(map[string]any{
			"status":     StatusPrivate,
			"updated_at": s.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, id)
}

// Duplicate 深拷贝文档及全部子集合到新 ID 下。副本总是 private。
func (s *Service) Duplicate(ctx context.Context, userID uint, id string) (*Document, error) {
	var copyID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(ctx, tx, userID, id); err != nil {
			return err
		}
		src, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		now := s.now()
		dst := *src
		dst.ID = s.newID()
		dst.Status = StatusPrivate
		dst.CreatedAt = now
		dst.UpdatedAt = now
		dst.PersonalInfo = nil
		dst.Experiences = nil
		dst.Educations = nil
		dst.Skills = nil
		dst.Projects = nil
		dst.Languages = nil
		if err := tx.Omit("PersonalInfo", "Experiences", "Educations", "Skills", "Projects", "Languages").
			Create(&dst).Error; err != nil {
			return fmt.Errorf("create duplicate: %w", err)
		}

		if src.PersonalInfo != nil {
			info := *src.PersonalInfo
			info.ID = 0
			info.DocumentID = dst.ID
			if err := tx.Create(&info).Error; err != nil {
				return fmt.Errorf("copy personal info: %w", err)
			}
		}
		if err := copyChildren(tx, dst.ID, src.Experiences); err != nil {
			return err
		}
		if err := copyChildren(tx, dst.ID, src.Educations); err != nil {
			return err
		}
		if err := copyChildren(tx, dst.ID, src.Skills); err != nil {
			return err
		}
		if err := copyChildren(tx, dst.ID, src.Projects); err != nil {
			return err
		}
		if err := copyChildren(tx, dst.ID, src.Languages); err != nil {
			return err
		}
		copyID = dst.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, copyID)
}

func copyChildren[T any, PT interface {
	*T
	Entity
}](tx *gorm.DB, documentID string, items []T) error {
	if len(items) == 0 {
		return nil
	}
	copies := make([]T, len(items))
	copy(copies, items)
	for i := range copies {
		resetID(any(&copies[i]))
		PT(&copies[i]).setDocumentID(documentID)
	}
	if err := tx.Create(&copies).Error; err != nil {
		return fmt.Errorf("copy children: %w", err)
	}
	return nil
}

func resetID(entity any) {
	switch e := entity.(type) {
	case *Experience:
		e.ID = 0
	case *Education:
		e.ID = 0
	case *Skill:
		e.ID = 0
	case *Project:
		e.ID = 0
	case *Language:
		e.ID = 0
	}
}

// Delete 物理删除文档及子实体，返回被删除的文档（用于清理缩略图）。
func (s *Service) Delete(ctx context.Context, userID uint, id string) (*Document, error) {
	var deleted *Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := s.owned(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := deleteAggregate(tx, id); err != nil {
			return err
		}
		deleted = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func deleteAggregate(tx *gorm.DB, id string) error {
	for _, model := range []any{&PersonalInfo{}, &Experience{}, &Education{}, &Skill{}, &Project{}, &Language{}} {
		if err := tx.Where("document_id = ?", id).Delete(model).Error; err != nil {
			return fmt.Errorf("delete children of %s: %w", id, err)
		}
	}
	if err := tx.Where("id = ?", id).Delete(&Document{}).Error; err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// PurgeArchived 物理删除 updated_at 早于 before 的归档文档，最多 limit 份。
func (s *Service) PurgeArchived(ctx context.Context, before time.Time, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 100
	}
	var victims []Document
	if err := s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", StatusArchived, before).
		Order("updated_at ASC").
		Limit(limit).
		Find(&victims).Error; err != nil {
		return nil, fmt.Errorf("query archived documents: %w", err)
	}

	purged := make([]Document, 0, len(victims))
	for _, doc := range victims {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return deleteAggregate(tx, doc.ID)
		})
		if err != nil {
			return purged, err
		}
		purged = append(purged, doc)
	}
	return purged, nil
}

// CreateEntity 在文档下新增一个子实体并返回带服务端 ID 的结果。
func (s *Service) CreateEntity(ctx context.Context, userID uint, documentID string, kind EntityKind, entity Entity) (Entity, error) {
	if err := validateEntity(entity); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(ctx, tx, userID, documentID); err != nil {
			return err
		}
		resetID(entity)
		entity.setDocumentID(documentID)
		if err := tx.Create(entity).Error; err != nil {
			return fmt.Errorf("create %s: %w", kind, err)
		}
		return s.touch(tx, documentID)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// UpdateEntity 只更新请求中出现的字段。
func (s *Service) UpdateEntity(ctx context.Context, userID uint, documentID string, kind EntityKind, entityID uint, fields map[string]any) (Entity, error) {
	updates, err := kind.columnUpdates(fields)
	if err != nil {
		return nil, err
	}

	entity := kind.NewEntity()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(ctx, tx, userID, documentID); err != nil {
			return err
		}
		res := tx.Model(entity).
			Where("id = ? AND document_id = ?", entityID, documentID).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("update %s %d: %w", kind, entityID, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound(string(kind), entityID)
		}
		if err := tx.Where("id = ?", entityID).First(entity).Error; err != nil {
			return fmt.Errorf("reload %s %d: %w", kind, entityID, err)
		}
		return s.touch(tx, documentID)
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// DeleteEntity 删除文档下的子实体。
func (s *Service) DeleteEntity(ctx context.Context, userID uint, documentID string, kind EntityKind, entityID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.owned(ctx, tx, userID, documentID); err != nil {
			return err
		}
		res := tx.Where("id = ? AND document_id = ?", entityID, documentID).Delete(kind.NewEntity())
		if res.Error != nil {
			return fmt.Errorf("delete %s %d: %w", kind, entityID, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound(string(kind), entityID)
		}
		return s.touch(tx, documentID)
	})
}

// DeleteLanguage 按语言 ID 删除，返回其所属文档 ID。
func (s *Service) DeleteLanguage(ctx context.Context, userID uint, languageID uint) (string, error) {
	var language Language
	err := s.db.WithContext(ctx).First(&language, languageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", notFound("language", languageID)
	}
	if err != nil {
		return "", fmt.Errorf("query language %d: %w", languageID, err)
	}
	if err := s.DeleteEntity(ctx, userID, language.DocumentID, KindLanguage, languageID); err != nil {
		return "", err
	}
	return language.DocumentID, nil
}

func validateEntity(entity Entity) error {
	switch e := entity.(type) {
	case *Skill:
		if e.Rating < 0 || e.Rating > 5 {
			return invalid("rating", "must be between 0 and 5")
		}
		if e.SkillOrder < 0 || e.CategoryOrder < 0 {
			return invalid("order", "must not be negative")
		}
	case *Experience:
		if e.Order < 0 {
			return invalid("order", "must not be negative")
		}
	case *Education:
		if e.Order < 0 {
			return invalid("order", "must not be negative")
		}
	case *Project:
		if e.Order < 0 {
			return invalid("order", "must not be negative")
		}
	case *Language:
		if e.Order < 0 {
			return invalid("order", "must not be negative")
		}
	}
	return nil
}

func (s *Service) touch(tx *gorm.DB, documentID string) error {
	return tx.Model(&Document{}).Where("id = ?", documentID).Update("updated_at", s.now()).Error
}

func (s *Service) owned(ctx context.Context, db *gorm.DB, userID uint, id string) (*Document, error) {
	var doc Document
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("document", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query document %s: %w", id, err)
	}
	return &doc, nil
}

func byColumns(columns string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Order(columns) }
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id string) (*Document, error) {
	var doc Document
	err := db.WithContext(ctx).
		Preload("PersonalInfo").
		Preload("Experiences", byColumns("display_order ASC, id ASC")).
		Preload("Educations", byColumns("display_order ASC, id ASC")).
		Preload("Skills", byColumns("category_order ASC, skill_order ASC, id ASC")).
		Preload("Projects", byColumns("display_order ASC, id ASC")).
		Preload("Languages", byColumns("display_order ASC, id ASC")).
		Where("id = ?", id).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("document", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	return &doc, nil
}
