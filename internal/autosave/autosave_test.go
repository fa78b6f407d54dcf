package autosave_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"resumeStudio/internal/autosave"
)

func TestAutoSaver_UnchangedValueSendsNothing(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, notifier := newSaver(t, backend)

	if err := saver.Set("title", "Draft"); err != nil {
		t.Fatal(err)
	}
	clock.Advance(time.Second)

	assert.Equal(t, len(backend.Calls("PATCH")), 0)
	assert.Equal(t, len(notifier.successes), 0)
	assert.Equal(t, len(notifier.errors), 0)
}

func TestAutoSaver_NotifyNoChangesWhenConfigured(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, notifier := newSaver(t, backend, autosave.WithNotifyNoChanges(true))

	_ = saver.Set("title", "Draft")
	clock.Advance(time.Second)

	assert.Equal(t, len(backend.Calls("PATCH")), 0)
	assert.Equal(t, notifier.successes, []string{"No changes to save"})
}

func TestAutoSaver_PatchesOnlyTheSettledField(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, notifier := newSaver(t, backend)

	for _, v := range []string{"R", "Re", "Res", "Resume"} {
		_ = saver.Set("title", v)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, len(backend.Calls("PATCH")), 0)

	clock.Advance(500 * time.Millisecond)
	patches := backend.Calls("PATCH")
	assert.Equal(t, len(patches), 1)
	assert.Equal(t, patches[0].Body, map[string]any{"title": "Resume"})

	// document-level saves are silent
	assert.Equal(t, len(notifier.successes), 0)
	assert.Equal(t, saver.Baseline()["title"], "Resume")
	assert.Equal(t, saver.Dirty(), false)
}

func TestAutoSaver_FieldsDebounceIndependently(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, _ := newSaver(t, backend)

	_ = saver.Set("title", "Senior")
	clock.Advance(300 * time.Millisecond)
	_ = saver.Set("summary", "<p>hello</p>")
	clock.Advance(300 * time.Millisecond)

	patches := backend.Calls("PATCH")
	assert.Equal(t, len(patches), 1)
	assert.Equal(t, patches[0].Body, map[string]any{"title": "Senior"})

	clock.Advance(300 * time.Millisecond)
	patches = backend.Calls("PATCH")
	assert.Equal(t, len(patches), 2)
	assert.Equal(t, patches[1].Body, map[string]any{"summary": "<p>hello</p>"})
}

func TestAutoSaver_SaveCombinesChangesAndIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, _ := newSaver(t, backend)
	ctx := context.Background()

	_ = saver.Set("title", "Combined")
	_ = saver.Set("themeColor", "#000000")
	if err := saver.Save(ctx); err != nil {
		t.Fatal(err)
	}

	patches := backend.Calls("PATCH")
	assert.Equal(t, len(patches), 1)
	assert.Equal(t, patches[0].Body, map[string]any{"title": "Combined", "themeColor": "#000000"})

	clock.Advance(time.Second)
	assert.Equal(t, len(backend.Calls("PATCH")), 1)

	before := backend.Total()
	if err := saver.Save(ctx); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, backend.Total(), before)
}

func TestAutoSaver_KeepLocalOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failUpdate = errBoom
	saver, clock, notifier := newSaver(t, backend)

	_ = saver.Set("title", "Unsaved")
	clock.Advance(time.Second)

	assert.Equal(t, len(backend.Calls("PATCH")), 1)
	assert.Equal(t, notifier.errors, []string{"Error saving changes"})
	v, _ := saver.Get("title")
	assert.Equal(t, v, "Unsaved")
	assert.Equal(t, saver.Baseline()["title"], "Draft")
	assert.Equal(t, saver.Dirty(), true)

	// no automatic retry
	clock.Advance(10 * time.Second)
	assert.Equal(t, len(backend.Calls("PATCH")), 1)
}

func TestAutoSaver_RevertOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.failUpdate = errBoom
	var reverted []string
	saver, clock, _ := newSaver(t, backend,
		autosave.WithErrorPolicy(autosave.Revert),
		autosave.WithOnRevert(func(key string, value any) {
			reverted = append(reverted, key+"="+value.(string))
		}),
	)

	_ = saver.Set("title", "Unsaved")
	clock.Advance(time.Second)

	v, _ := saver.Get("title")
	assert.Equal(t, v, "Draft")
	assert.Equal(t, reverted, []string{"title=Draft"})
	assert.Equal(t, saver.Dirty(), false)
}

func TestAutoSaver_CloseCancelsPendingSave(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, _ := newSaver(t, backend)

	_ = saver.Set("title", "Abandoned")
	clock.Advance(100 * time.Millisecond)
	saver.Close()
	clock.Advance(time.Second)

	assert.Equal(t, len(backend.Calls("PATCH")), 0)
	assert.Equal(t, clock.Pending(), 0)
	assert.Equal(t, saver.Set("title", "again"), autosave.ErrClosed)
}

func TestAutoSaver_StaleResponseDoesNotOverwriteNewerBaseline(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, _ := newSaver(t, backend)
	ctx := context.Background()

	_ = saver.Set("title", "A")
	// The refetch after saving "A" is answered only after a newer save of "B"
	// has been acknowledged, and carries the older server state.
	backend.beforeGet = func() {
		_ = saver.Set("title", "B")
		if err := saver.Save(ctx); err != nil {
			t.Errorf("nested save: %v", err)
		}
	}
	clock.Advance(time.Second)

	assert.Equal(t, len(backend.Calls("PATCH")), 2)
	assert.Equal(t, saver.Baseline()["title"], "B")
	v, _ := saver.Get("title")
	assert.Equal(t, v, "B")
}

func TestAutoSaver_EditDuringFlightIsKept(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, _ := newSaver(t, backend)

	_ = saver.Set("title", "First")
	backend.beforeGet = func() { _ = saver.Set("title", "Second") }
	clock.Advance(600 * time.Millisecond)

	v, _ := saver.Get("title")
	assert.Equal(t, v, "Second")
	assert.Equal(t, saver.Dirty(), true)

	clock.Advance(600 * time.Millisecond)
	patches := backend.Calls("PATCH")
	assert.Equal(t, len(patches), 2)
	assert.Equal(t, patches[1].Body, map[string]any{"title": "Second"})
}

func TestAutoSaver_RefreshDuringFlightKeepsAcknowledgement(t *testing.T) {
	backend := newFakeBackend()
	saver, clock, _ := newSaver(t, backend)
	ctx := context.Background()

	_ = saver.Set("title", "Resume")
	// A list refresh reads the server before the PATCH lands.
	backend.beforeUpdate = func() {
		if err := saver.Refresh(ctx); err != nil {
			t.Errorf("refresh: %v", err)
		}
	}
	clock.Advance(time.Second)

	assert.Equal(t, len(backend.Calls("PATCH")), 1)
	assert.Equal(t, saver.Baseline()["title"], "Resume")
	assert.Equal(t, saver.Dirty(), false)

	if err := saver.Save(ctx); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, len(backend.Calls("PATCH")), 1)
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := autosave.ParseErrorPolicy("revert")
	assert.Equal(t, err, nil)
	assert.Equal(t, p, autosave.Revert)

	p, err = autosave.ParseErrorPolicy("")
	assert.Equal(t, err, nil)
	assert.Equal(t, p, autosave.KeepLocal)
	assert.Equal(t, p.String(), "keep-local")

	_, err = autosave.ParseErrorPolicy("explode")
	assert.NotEqual(t, err, nil)
}
