package autosave_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"

	"resumeStudio/internal/autosave"
	"resumeStudio/internal/document"
)

func newSkillList(t *testing.T, opts ...autosave.ListOption) (*autosave.List[document.Skill], *fakeBackend, *recordingNotifier) {
	t.Helper()
	backend := newFakeBackend()
	backend.doc.Skills = []document.Skill{
		{ID: 11, DocumentID: "doc-1", Name: "React", Category: "Frontend", CategoryOrder: 0, SkillOrder: 0},
		{ID: 12, DocumentID: "doc-1", Name: "Go", Category: "Backend", CategoryOrder: 1, SkillOrder: 0},
		{ID: 13, DocumentID: "doc-1", Name: "Vue", Category: "Frontend", CategoryOrder: 0, SkillOrder: 1},
	}
	saver, _, notifier := newSaver(t, backend)
	list, err := autosave.NewList(saver, autosave.SkillSchema, opts...)
	if err != nil {
		t.Fatalf("new list: %v", err)
	}
	return list, backend, notifier
}

func categoriesOf(list *autosave.List[document.Skill]) map[string]string {
	out := map[string]string{}
	for _, s := range list.Values() {
		out[s.Name] = s.Category
	}
	return out
}

func TestRenameCategory_TouchesOnlyMatchingSkills(t *testing.T) {
	list, backend, _ := newSkillList(t)

	if err := autosave.RenameCategory(context.Background(), list, "Frontend", "Web"); err != nil {
		t.Fatal(err)
	}

	updates := backend.Calls("UPDATE")
	assert.Equal(t, len(updates), 2)
	assert.Equal(t, updates[0].ID, uint(11))
	assert.Equal(t, updates[1].ID, uint(13))
	for _, u := range updates {
		assert.Equal(t, u.Body, map[string]any{"category": "Web"})
	}
	assert.Equal(t, categoriesOf(list), map[string]string{"React": "Web", "Vue": "Web", "Go": "Backend"})
}

func TestRenameCategory_MergeAppendsAfterTarget(t *testing.T) {
	list, backend, _ := newSkillList(t)

	if err := autosave.RenameCategory(context.Background(), list, "Backend", "Frontend"); err != nil {
		t.Fatal(err)
	}

	updates := backend.Calls("UPDATE")
	assert.Equal(t, len(updates), 1)
	assert.Equal(t, updates[0].ID, uint(12))
	assert.Equal(t, updates[0].Body, map[string]any{"category": "Frontend", "categoryOrder": 0, "skillOrder": 2})

	orders := map[int]string{}
	for _, s := range list.Values() {
		assert.Equal(t, s.Category, "Frontend")
		assert.Equal(t, s.CategoryOrder, 0)
		if prev, dup := orders[s.SkillOrder]; dup {
			t.Fatalf("skillOrder %d shared by %s and %s", s.SkillOrder, prev, s.Name)
		}
		orders[s.SkillOrder] = s.Name
	}
	assert.Equal(t, orders, map[int]string{0: "React", 1: "Vue", 2: "Go"})
	assert.Equal(t, autosave.Categories(list), []string{"Frontend"})
}

func TestRenameCategory_PartialFailureIsNotRolledBack(t *testing.T) {
	list, backend, notifier := newSkillList(t)
	backend.failEntity[13] = errBoom

	err := autosave.RenameCategory(context.Background(), list, "Frontend", "Web")
	assert.Equal(t, errors.Is(err, errBoom), true)
	assert.Equal(t, len(backend.Calls("UPDATE")), 2)
	assert.Equal(t, notifier.errors, []string{"Error renaming category"})

	// server: first skill renamed, second not
	assert.Equal(t, backend.doc.Skills[0].Category, "Web")
	assert.Equal(t, backend.doc.Skills[2].Category, "Frontend")
}

func TestRenameCategory_SameNameIsNoop(t *testing.T) {
	list, backend, _ := newSkillList(t)
	before := backend.Total()

	assert.Equal(t, autosave.RenameCategory(context.Background(), list, "Backend", "Backend"), nil)
	assert.Equal(t, autosave.RenameCategory(context.Background(), list, "Missing", "Other"), nil)
	assert.Equal(t, backend.Total(), before)
}

func TestAddSkill_TakesCategoryOrder(t *testing.T) {
	list, backend, _ := newSkillList(t)
	ctx := context.Background()

	if _, err := list.Add(ctx, document.Skill{Name: "Rust", Category: "Backend"}); err != nil {
		t.Fatal(err)
	}
	if _, err := list.Add(ctx, document.Skill{Name: "AWS", Category: "Cloud"}); err != nil {
		t.Fatal(err)
	}

	got := map[string][2]int{}
	for _, s := range list.Values() {
		got[s.Name] = [2]int{s.CategoryOrder, s.SkillOrder}
	}
	assert.Equal(t, got["Rust"], [2]int{1, 1})
	assert.Equal(t, got["AWS"], [2]int{2, 0})
	assert.Equal(t, autosave.Categories(list), []string{"Frontend", "Backend", "Cloud"})

	// persisted with the same orders
	created := backend.doc.Skills[3:]
	assert.Equal(t, len(created), 2)
	assert.Equal(t, [2]int{created[0].CategoryOrder, created[0].SkillOrder}, [2]int{1, 1})
	assert.Equal(t, [2]int{created[1].CategoryOrder, created[1].SkillOrder}, [2]int{2, 0})
}

func TestMoveCategory_ReassignsSharedCategoryOrder(t *testing.T) {
	list, backend, _ := newSkillList(t, autosave.WithPersistMode(autosave.PersistPerEntity))
	assert.Equal(t, autosave.Categories(list), []string{"Frontend", "Backend"})

	if err := autosave.MoveCategory(context.Background(), list, "Backend", 0); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, autosave.Categories(list), []string{"Backend", "Frontend"})

	got := map[uint]any{}
	for _, c := range backend.Calls("UPDATE") {
		got[c.ID] = c.Body["categoryOrder"]
	}
	assert.Equal(t, got, map[uint]any{11: 1, 12: 0, 13: 1})

	for _, s := range list.Values() {
		if s.Name == "Vue" {
			assert.Equal(t, s.SkillOrder, 1)
		}
	}
}

func TestMoveCategory_Errors(t *testing.T) {
	list, backend, _ := newSkillList(t)
	ctx := context.Background()
	before := backend.Total()

	err := autosave.MoveCategory(ctx, list, "Nope", 0)
	assert.Equal(t, errors.Is(err, autosave.ErrUnknownCategory), true)
	assert.Equal(t, autosave.MoveCategory(ctx, list, "Frontend", -5), nil)
	assert.Equal(t, backend.Total(), before)
}

func TestSkillMoveStaysWithinCategory(t *testing.T) {
	list, backend, _ := newSkillList(t)

	if err := list.Move(context.Background(), autosave.Persisted{ID: 13}, 0); err != nil {
		t.Fatal(err)
	}

	orders := map[string]int{}
	for _, s := range list.Values() {
		orders[s.Name] = s.SkillOrder
	}
	assert.Equal(t, orders, map[string]int{"Vue": 0, "React": 1, "Go": 0})
	assert.Equal(t, len(backend.Calls("PATCH")), 1)

	// Go is alone in its category
	before := backend.Total()
	assert.Equal(t, list.MoveDown(context.Background(), autosave.Persisted{ID: 12}), nil)
	assert.Equal(t, backend.Total(), before)
}
