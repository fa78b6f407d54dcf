package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// ErrDiscarded 表示占位条目在创建请求完成前已被移除，服务端实体随后被删除。
var ErrDiscarded = errors.New("autosave: entry removed before create completed")

// PersistMode 决定排序结果如何写回服务端。
type PersistMode int

const (
	// PersistBulk 用一次文档 PATCH 携带整个已落库的集合。
	PersistBulk PersistMode = iota
	// PersistPerEntity 对每个 order 发生变化的实体各发一次 PATCH。
	PersistPerEntity
)

type listConfig struct {
	mode PersistMode
}

type ListOption func(*listConfig)

func WithPersistMode(m PersistMode) ListOption {
	return func(c *listConfig) { c.mode = m }
}

// Entry 是列表中的一项。
type Entry[T any] struct {
	Ref   Ref
	Value T
}

// List 维护一个子实体集合的本地顺序，并把增删与排序同步到服务端。
// 本地状态总是先变，网络失败只提示一次，不回滚。
type List[T any] struct {
	saver  *AutoSaver
	schema Schema[T]
	mode   PersistMode

	mu      sync.Mutex
	entries []Entry[T]
}

// NewList 以会话基线中 schema.DocumentKey 对应的集合初始化列表。
func NewList[T any](saver *AutoSaver, schema Schema[T], opts ...ListOption) (*List[T], error) {
	if saver.entities == nil {
		return nil, errors.New("autosave: entity client not configured")
	}
	cfg := listConfig{mode: PersistBulk}
	for _, opt := range opts {
		opt(&cfg)
	}

	var items []T
	if raw, ok := saver.Baseline()[schema.DocumentKey]; ok && raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", schema.DocumentKey, err)
		}
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode %s: %w", schema.DocumentKey, err)
		}
	}

	l := &List[T]{saver: saver, schema: schema, mode: cfg.mode}
	for _, item := range items {
		l.entries = append(l.entries, Entry[T]{Ref: Persisted{ID: schema.ID(item)}, Value: item})
	}
	return l, nil
}

// Entries 返回当前顺序的拷贝。
func (l *List[T]) Entries() []Entry[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.entries)
}

// Values 返回当前顺序的实体值。
func (l *List[T]) Values() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Value
	}
	return out
}

func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// AddNew 以 schema 的默认值追加一个实体。
func (l *List[T]) AddNew(ctx context.Context) (Ref, error) {
	return l.Add(ctx, l.schema.New())
}

// Add 先追加一个 Pending 占位，创建成功后原位替换为服务端实体。
func (l *List[T]) Add(ctx context.Context, v T) (Ref, error) {
	tmp := Pending{TempID: NewTempID()}

	l.mu.Lock()
	if l.schema.Place != nil {
		existing := make([]T, len(l.entries))
		for i, e := range l.entries {
			existing[i] = e.Value
		}
		l.schema.Place(existing, &v)
	}
	l.schema.SetOrder(&v, len(l.scopeSlots(l.schema.scope(v))))
	l.entries = append(l.entries, Entry[T]{Ref: tmp, Value: v})
	l.mu.Unlock()

	created, err := l.create(ctx, v)
	if err != nil {
		l.saver.logger.Error("create entity failed", "kind", l.schema.Kind, "error", err)
		l.saver.notifier.Error("Error adding "+string(l.schema.Kind), err)
		if l.saver.policy == Revert {
			l.drop(tmp)
		}
		return tmp, err
	}
	ref := Persisted{ID: l.schema.ID(created)}

	l.mu.Lock()
	idx := l.indexOf(tmp)
	if idx >= 0 {
		l.schema.SetOrder(&created, l.schema.Order(l.entries[idx].Value))
		l.entries[idx] = Entry[T]{Ref: ref, Value: created}
	}
	l.mu.Unlock()

	if idx < 0 {
		if err := l.schema.remove(ctx, l.saver.entities, l.saver.id, ref.ID); err != nil {
			l.saver.notifier.Error("Error removing "+string(l.schema.Kind), err)
			return ref, fmt.Errorf("delete discarded %s %d: %w", l.schema.Kind, ref.ID, err)
		}
		l.refresh(ctx)
		return nil, ErrDiscarded
	}

	l.saver.notifier.Success(label(string(l.schema.Kind)) + " added")
	l.refresh(ctx)
	return ref, nil
}

func (l *List[T]) create(ctx context.Context, v T) (T, error) {
	var created T
	raw, err := l.saver.entities.CreateEntity(ctx, l.saver.id, l.schema.Kind, v)
	if err != nil {
		return created, fmt.Errorf("create %s: %w", l.schema.Kind, err)
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return created, fmt.Errorf("decode created %s: %w", l.schema.Kind, err)
	}
	return created, nil
}

// Remove 立即从本地移除。未落库的条目不产生任何请求。
func (l *List[T]) Remove(ctx context.Context, ref Ref) error {
	if !l.drop(ref) {
		return ErrUnknownRef
	}
	return MatchRef(ref,
		func(Pending) error { return nil },
		func(p Persisted) error {
			if err := l.schema.remove(ctx, l.saver.entities, l.saver.id, p.ID); err != nil {
				l.saver.logger.Error("delete entity failed", "kind", l.schema.Kind, "id", p.ID, "error", err)
				l.saver.notifier.Error("Error removing "+string(l.schema.Kind), err)
				return fmt.Errorf("delete %s %d: %w", l.schema.Kind, p.ID, err)
			}
			l.saver.notifier.Success(label(string(l.schema.Kind)) + " removed")
			l.refresh(ctx)
			return nil
		})
}

func (l *List[T]) MoveUp(ctx context.Context, ref Ref) error {
	return l.step(ctx, ref, -1)
}

func (l *List[T]) MoveDown(ctx context.Context, ref Ref) error {
	return l.step(ctx, ref, +1)
}

func (l *List[T]) step(ctx context.Context, ref Ref, delta int) error {
	l.mu.Lock()
	idx := l.indexOf(ref)
	if idx < 0 {
		l.mu.Unlock()
		return ErrUnknownRef
	}
	slots := l.scopeSlots(l.schema.scope(l.entries[idx].Value))
	pos := slices.Index(slots, idx)
	l.mu.Unlock()

	to := pos + delta
	if to < 0 || to >= len(slots) {
		return nil
	}
	return l.Move(ctx, ref, to)
}

// Move 把条目移动到其作用域内的 to 位置，并把该作用域重新编号为 0..N-1。
// to 超出范围时取边界。
func (l *List[T]) Move(ctx context.Context, ref Ref, to int) error {
	l.mu.Lock()
	idx := l.indexOf(ref)
	if idx < 0 {
		l.mu.Unlock()
		return ErrUnknownRef
	}
	slots := l.scopeSlots(l.schema.scope(l.entries[idx].Value))
	from := slices.Index(slots, idx)
	to = max(0, min(to, len(slots)-1))
	if from == to {
		l.mu.Unlock()
		return nil
	}

	members := make([]Entry[T], len(slots))
	for i, slot := range slots {
		members[i] = l.entries[slot]
	}
	moved := members[from]
	members = slices.Delete(members, from, from+1)
	members = slices.Insert(members, to, moved)

	var changed []Entry[T]
	for i, e := range members {
		old := l.schema.Order(e.Value)
		l.schema.SetOrder(&e.Value, i)
		l.entries[slots[i]] = e
		if _, ok := e.Ref.(Persisted); ok && old != i {
			changed = append(changed, e)
		}
	}
	all := l.persistedValues()
	l.mu.Unlock()

	return l.persist(ctx, all, changed, l.schema.OrderKey, l.schema.Order)
}

// persist 写回排序变化。逐个 PATCH 时失败不会中断其余请求，也不会回滚。
func (l *List[T]) persist(ctx context.Context, all []T, changed []Entry[T], key string, value func(T) int) error {
	if len(changed) == 0 {
		return nil
	}

	var err error
	switch l.mode {
	case PersistPerEntity:
		var errs []error
		for _, e := range changed {
			id := e.Ref.(Persisted).ID
			fields := map[string]any{key: value(e.Value)}
			if _, uerr := l.saver.entities.UpdateEntity(ctx, l.saver.id, l.schema.Kind, id, fields); uerr != nil {
				errs = append(errs, fmt.Errorf("%s %d: %w", l.schema.Kind, id, uerr))
			}
		}
		err = errors.Join(errs...)
	default:
		_, err = l.saver.docs.UpdateDocument(ctx, l.saver.id, map[string]any{l.schema.DocumentKey: all})
	}

	if err != nil {
		l.saver.logger.Error("persist order failed", "kind", l.schema.Kind, "error", err)
		l.saver.notifier.Error("Error saving order", err)
	}
	l.refresh(ctx)
	return err
}

func (l *List[T]) refresh(ctx context.Context) {
	if err := l.saver.Refresh(ctx); err != nil {
		l.saver.logger.Warn("refresh after entity change failed", "kind", l.schema.Kind, "error", err)
	}
}

func (l *List[T]) drop(ref Ref) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOf(ref)
	if idx < 0 {
		return false
	}
	l.entries = slices.Delete(l.entries, idx, idx+1)
	return true
}

// indexOf 调用方必须持有 l.mu。
func (l *List[T]) indexOf(ref Ref) int {
	return slices.IndexFunc(l.entries, func(e Entry[T]) bool { return sameRef(e.Ref, ref) })
}

// scopeSlots 返回作用域内条目在 entries 中的下标，按 entries 顺序。
func (l *List[T]) scopeSlots(scope string) []int {
	var slots []int
	for i, e := range l.entries {
		if l.schema.scope(e.Value) == scope {
			slots = append(slots, i)
		}
	}
	return slots
}

func (l *List[T]) persistedValues() []T {
	out := make([]T, 0, len(l.entries))
	for _, e := range l.entries {
		if _, ok := e.Ref.(Persisted); ok {
			out = append(out, e.Value)
		}
	}
	return out
}

func label(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
