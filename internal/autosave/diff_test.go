package autosave_test

import (
	"testing"

	"github.com/go-playground/assert/v2"

	"resumeStudio/internal/autosave"
	"resumeStudio/internal/document"
)

func TestDiff_OnlyChangedKeys(t *testing.T) {
	prev := autosave.Snapshot{"a": 1, "b": 2, "c": 3}
	next := autosave.Snapshot{"a": 1, "b": 5, "c": 3}

	patch, changed := autosave.Diff(prev, next)
	assert.Equal(t, changed, true)
	assert.Equal(t, patch, autosave.Patch{"b": 5})
}

func TestDiff_IdenticalIsUnchanged(t *testing.T) {
	snap, err := autosave.SnapshotOf(document.Document{ID: "x", Title: "Draft", PageOrder: document.DefaultPageOrder()})
	if err != nil {
		t.Fatal(err)
	}
	again, _ := autosave.SnapshotOf(document.Document{ID: "x", Title: "Draft", PageOrder: document.DefaultPageOrder()})

	patch, changed := autosave.Diff(snap, again)
	assert.Equal(t, changed, false)
	assert.Equal(t, len(patch), 0)
}

func TestDiff_NilPreviousIsFullPatch(t *testing.T) {
	next := autosave.Snapshot{"title": "Draft", "summary": ""}
	patch, changed := autosave.Diff(nil, next)
	assert.Equal(t, changed, true)
	assert.Equal(t, patch, autosave.Patch{"title": "Draft", "summary": ""})
}

func TestDiff_NestedValueIncludedWhole(t *testing.T) {
	prev, _ := autosave.SnapshotOf(map[string]any{
		"experience": []document.Experience{{ID: 1, Title: "A"}, {ID: 2, Title: "B", Order: 1}},
		"title":      "Draft",
	})
	next, _ := autosave.SnapshotOf(map[string]any{
		"experience": []document.Experience{{ID: 1, Title: "A"}, {ID: 2, Title: "B2", Order: 1}},
		"title":      "Draft",
	})

	patch, changed := autosave.Diff(prev, next)
	assert.Equal(t, changed, true)
	assert.Equal(t, patch.Keys(), []string{"experience"})
	items := patch["experience"].([]any)
	assert.Equal(t, len(items), 2)
}

func TestDiff_MissingKeysAreNotEdits(t *testing.T) {
	prev := autosave.Snapshot{"title": "Draft", "summary": "old"}
	next := autosave.Snapshot{"title": "Draft"}

	_, changed := autosave.Diff(prev, next)
	assert.Equal(t, changed, false)
}

func TestDiff_NewKeyIsChange(t *testing.T) {
	prev := autosave.Snapshot{"title": "Draft"}
	next := autosave.Snapshot{"title": "Draft", "locale": "de"}

	patch, changed := autosave.Diff(prev, next)
	assert.Equal(t, changed, true)
	assert.Equal(t, patch, autosave.Patch{"locale": "de"})
}
