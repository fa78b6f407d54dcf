package autosave

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"resumeStudio/internal/document"
)

var ErrUnknownCategory = errors.New("autosave: unknown skill category")

// Categories 按 categoryOrder 返回技能分类，同序时按首次出现的位置。
func Categories(l *List[document.Skill]) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return categories(l.entries)
}

func categories(entries []Entry[document.Skill]) []string {
	type group struct {
		name  string
		order int
		first int
	}
	var groups []group
	seen := make(map[string]int)
	for i, e := range entries {
		if g, ok := seen[e.Value.Category]; ok {
			groups[g].order = min(groups[g].order, e.Value.CategoryOrder)
			continue
		}
		seen[e.Value.Category] = len(groups)
		groups = append(groups, group{name: e.Value.Category, order: e.Value.CategoryOrder, first: i})
	}
	slices.SortStableFunc(groups, func(a, b group) int {
		if a.order != b.order {
			return a.order - b.order
		}
		return a.first - b.first
	})
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.name
	}
	return names
}

// MoveCategory 把整个分类移动到 to 位置。同一分类下的技能共享 categoryOrder，
// skillOrder 不变。
func MoveCategory(ctx context.Context, l *List[document.Skill], category string, to int) error {
	l.mu.Lock()
	names := categories(l.entries)
	from := slices.Index(names, category)
	if from < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%q: %w", category, ErrUnknownCategory)
	}
	to = max(0, min(to, len(names)-1))
	if from == to {
		l.mu.Unlock()
		return nil
	}

	names = slices.Delete(names, from, from+1)
	names = slices.Insert(names, to, category)

	var changed []Entry[document.Skill]
	for i := range l.entries {
		e := &l.entries[i]
		order := slices.Index(names, e.Value.Category)
		if e.Value.CategoryOrder == order {
			continue
		}
		e.Value.CategoryOrder = order
		if _, ok := e.Ref.(Persisted); ok {
			changed = append(changed, *e)
		}
	}
	all := l.persistedValues()
	l.mu.Unlock()

	return l.persist(ctx, all, changed, "categoryOrder", func(s document.Skill) int { return s.CategoryOrder })
}

// RenameCategory 把所有 category == from 的技能改为 to。每个技能单独更新，
// 部分失败时已成功的更新保留，返回合并后的错误。to 已存在时两组合并，
// 移入的技能沿用目标分类的 categoryOrder，skillOrder 接在目标末尾。
func RenameCategory(ctx context.Context, l *List[document.Skill], from, to string) error {
	if from == to {
		return nil
	}

	l.mu.Lock()
	merge, targetOrder, next := false, 0, 0
	var moved []*Entry[document.Skill]
	for i := range l.entries {
		e := &l.entries[i]
		switch e.Value.Category {
		case from:
			moved = append(moved, e)
		case to:
			if !merge {
				merge, targetOrder = true, e.Value.CategoryOrder
			}
			next = max(next, e.Value.SkillOrder+1)
		}
	}
	if merge {
		slices.SortStableFunc(moved, func(a, b *Entry[document.Skill]) int {
			return a.Value.SkillOrder - b.Value.SkillOrder
		})
	}

	var ids []uint
	var updates []map[string]any
	for _, e := range moved {
		e.Value.Category = to
		fields := map[string]any{"category": to}
		if merge {
			e.Value.CategoryOrder = targetOrder
			e.Value.SkillOrder = next
			fields["categoryOrder"] = targetOrder
			fields["skillOrder"] = next
			next++
		}
		if p, ok := e.Ref.(Persisted); ok {
			ids = append(ids, p.ID)
			updates = append(updates, fields)
		}
	}
	l.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	var errs []error
	for i, id := range ids {
		fields := updates[i]
		if _, err := l.saver.entities.UpdateEntity(ctx, l.saver.id, document.KindSkill, id, fields); err != nil {
			errs = append(errs, fmt.Errorf("skill %d: %w", id, err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		l.saver.logger.Error("rename category partially failed", "from", from, "to", to, "error", err)
		l.saver.notifier.Error("Error renaming category", err)
	}
	l.refresh(ctx)
	return err
}
