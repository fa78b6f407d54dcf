package autosave_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"resumeStudio/internal/autosave"
	"resumeStudio/internal/document"
	"resumeStudio/internal/testutil"
)

type call struct {
	Method string
	Kind   document.EntityKind
	ID     uint
	Body   map[string]any
}

// fakeBackend 是内存中的服务端，实现 DocumentClient 与 EntityClient。
type fakeBackend struct {
	mu     sync.Mutex
	doc    document.Document
	nextID uint
	calls  []call

	failUpdate error
	failCreate error
	failDelete error
	failEntity map[uint]error

	beforeGet    func()
	beforeUpdate func()
	onCreate     func()
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		doc: document.Document{
			ID:        "doc-1",
			UserID:    1,
			Title:     "Draft",
			Status:    document.StatusPrivate,
			PageOrder: document.DefaultPageOrder(),
		},
		nextID:     100,
		failEntity: map[uint]error{},
	}
}

func (f *fakeBackend) record(c call) {
	f.calls = append(f.calls, c)
}

func (f *fakeBackend) Calls(method string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBackend) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) snapshot() *document.Document {
	data, _ := json.Marshal(f.doc)
	var out document.Document
	_ = json.Unmarshal(data, &out)
	return &out
}

func (f *fakeBackend) GetDocument(_ context.Context, id string) (*document.Document, error) {
	f.mu.Lock()
	f.record(call{Method: "GET"})
	stale := f.snapshot()
	hook := f.beforeGet
	f.beforeGet = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
		return stale, nil
	}
	if id != "doc-1" {
		return nil, fmt.Errorf("document %s: not found", id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (f *fakeBackend) UpdateDocument(_ context.Context, _ string, patch map[string]any) (*document.Document, error) {
	f.mu.Lock()
	hook := f.beforeUpdate
	f.beforeUpdate = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call{Method: "PATCH", Body: patch})
	if f.failUpdate != nil {
		return nil, f.failUpdate
	}

	var current map[string]any
	data, _ := json.Marshal(f.doc)
	_ = json.Unmarshal(data, &current)
	for k, v := range patch {
		current[k] = v
	}
	data, _ = json.Marshal(current)
	var next document.Document
	if err := json.Unmarshal(data, &next); err != nil {
		return nil, err
	}
	for i := range next.Experiences {
		if next.Experiences[i].ID == 0 {
			f.nextID++
			next.Experiences[i].ID = f.nextID
			next.Experiences[i].DocumentID = next.ID
		}
	}
	f.doc = next
	return f.snapshot(), nil
}

func (f *fakeBackend) CreateEntity(_ context.Context, documentID string, kind document.EntityKind, entity any) (json.RawMessage, error) {
	f.mu.Lock()
	f.record(call{Method: "CREATE", Kind: kind})
	hook := f.onCreate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	var fields map[string]any
	data, _ := json.Marshal(entity)
	_ = json.Unmarshal(data, &fields)
	f.nextID++
	fields["id"] = f.nextID
	fields["documentId"] = documentID
	out, _ := json.Marshal(fields)

	switch kind {
	case document.KindExperience:
		var e document.Experience
		_ = json.Unmarshal(out, &e)
		f.doc.Experiences = append(f.doc.Experiences, e)
	case document.KindSkill:
		var s document.Skill
		_ = json.Unmarshal(out, &s)
		f.doc.Skills = append(f.doc.Skills, s)
	}
	return out, nil
}

func (f *fakeBackend) UpdateEntity(_ context.Context, _ string, kind document.EntityKind, id uint, fields map[string]any) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call{Method: "UPDATE", Kind: kind, ID: id, Body: fields})
	if err := f.failEntity[id]; err != nil {
		return nil, err
	}
	if kind == document.KindSkill {
		for i := range f.doc.Skills {
			if f.doc.Skills[i].ID != id {
				continue
			}
			if c, ok := fields["category"].(string); ok {
				f.doc.Skills[i].Category = c
			}
			if o, ok := fields["categoryOrder"].(int); ok {
				f.doc.Skills[i].CategoryOrder = o
			}
			if o, ok := fields["skillOrder"].(int); ok {
				f.doc.Skills[i].SkillOrder = o
			}
		}
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeBackend) DeleteEntity(_ context.Context, _ string, kind document.EntityKind, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call{Method: "DELETE", Kind: kind, ID: id})
	return f.failDelete
}

func (f *fakeBackend) DeleteLanguage(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call{Method: "DELETE_LANGUAGE", Kind: document.KindLanguage, ID: id})
	return f.failDelete
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string, _ error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

var errBoom = errors.New("boom")

func newSaver(t *testing.T, backend *fakeBackend, opts ...autosave.Option) (*autosave.AutoSaver, *testutil.ManualClock, *recordingNotifier) {
	t.Helper()
	clock := testutil.NewManualClock()
	notifier := &recordingNotifier{}
	base := []autosave.Option{
		autosave.WithClock(clock),
		autosave.WithEntityClient(backend),
		autosave.WithNotifier(notifier),
		autosave.WithLogger(slog.New(slog.DiscardHandler)),
	}
	saver, err := autosave.New(context.Background(), "doc-1", backend, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new saver: %v", err)
	}
	t.Cleanup(saver.Close)
	return saver, clock, notifier
}
