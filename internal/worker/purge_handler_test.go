package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"

	"resumeStudio/internal/cache"
	"resumeStudio/internal/document"
	"resumeStudio/internal/tasks"
	"resumeStudio/internal/testutil"
)

type recorder struct {
	prefixes    []string
	invalidated []string
	events      []cache.Event
}

func (r *recorder) DeletePrefix(_ context.Context, prefix string) error {
	r.prefixes = append(r.prefixes, prefix)
	return nil
}

func (r *recorder) Invalidate(_ context.Context, id string) error {
	r.invalidated = append(r.invalidated, id)
	return nil
}

func (r *recorder) Publish(_ context.Context, _ uint, ev cache.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func archived(t *testing.T, svc *document.Service, title string) *document.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := svc.Create(ctx, 1, title)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	status := document.StatusArchived
	if _, err := svc.Update(ctx, 1, doc.ID, document.Patch{Status: &status}); err != nil {
		t.Fatalf("archive: %v", err)
	}
	return doc
}

func newPurgeFixture(t *testing.T, batch int) (*PurgeHandler, *document.Service, *testutil.ManualClock, *recorder) {
	t.Helper()
	clock := testutil.NewManualClock()
	svc := document.NewService(testutil.NewDB(t), document.WithClock(clock.Now))
	rec := &recorder{}
	h := NewPurgeHandler(svc, PurgeDeps{Storage: rec, Cache: rec, Events: rec}, 30*24*time.Hour, batch, slog.New(slog.DiscardHandler))
	h.now = clock.Now
	return h, svc, clock, rec
}

func TestPurge_RemovesExpiredArchivedDocuments(t *testing.T) {
	h, svc, clock, rec := newPurgeFixture(t, 10)
	ctx := context.Background()

	old := archived(t, svc, "Old")
	kept, _ := svc.Create(ctx, 1, "Active")
	clock.Advance(31 * 24 * time.Hour)
	recent := archived(t, svc, "Recent")

	n, err := h.Purge(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if len(rec.prefixes) != 1 || rec.prefixes[0] != "thumbnails/document/"+old.ID+"/" {
		t.Fatalf("unexpected prefixes %v", rec.prefixes)
	}
	if len(rec.invalidated) != 1 || rec.invalidated[0] != old.ID {
		t.Fatalf("unexpected invalidations %v", rec.invalidated)
	}
	if len(rec.events) != 1 || rec.events[0].Type != cache.EventDocumentDeleted {
		t.Fatalf("unexpected events %+v", rec.events)
	}

	for _, id := range []string{kept.ID, recent.ID} {
		if _, err := svc.Get(ctx, 1, id); err != nil {
			t.Fatalf("document %s must survive: %v", id, err)
		}
	}
	if _, err := svc.Get(ctx, 1, old.ID); !errors.Is(err, document.ErrNotFound) {
		t.Fatalf("expected old document gone, got %v", err)
	}
}

func TestPurge_ProcessTaskDrainsInBatches(t *testing.T) {
	h, svc, clock, rec := newPurgeFixture(t, 10)
	for _, title := range []string{"A", "B", "C"} {
		archived(t, svc, title)
	}
	clock.Advance(31 * 24 * time.Hour)

	task, err := tasks.NewTrashPurgeTask(2, "corr-1")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(rec.invalidated) != 3 {
		t.Fatalf("expected all three purged across batches, got %v", rec.invalidated)
	}
}

func TestPurge_BadPayloadSkipsRetry(t *testing.T) {
	h, _, _, _ := newPurgeFixture(t, 10)
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeTrashPurge, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}
