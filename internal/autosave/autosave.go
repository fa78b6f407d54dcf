package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrorPolicy 决定保存失败后本地值的去留。
type ErrorPolicy int

const (
	// KeepLocal 保留用户输入，等待下一次编辑重新保存。
	KeepLocal ErrorPolicy = iota
	// Revert 把失败字段恢复为最后确认的服务端值。
	Revert
)

func (p ErrorPolicy) String() string {
	switch p {
	case KeepLocal:
		return "keep-local"
	case Revert:
		return "revert"
	}
	return fmt.Sprintf("ErrorPolicy(%d)", int(p))
}

// ParseErrorPolicy 解析配置中的策略名。
func ParseErrorPolicy(raw string) (ErrorPolicy, error) {
	switch raw {
	case "", "keep-local":
		return KeepLocal, nil
	case "revert":
		return Revert, nil
	}
	return KeepLocal, fmt.Errorf("unknown error policy %q", raw)
}

var (
	ErrClosed     = errors.New("autosave: session closed")
	ErrUnknownRef = errors.New("autosave: unknown entry")
)

// Option 配置 AutoSaver。
type Option func(*AutoSaver)

func WithClock(c Clock) Option { return func(s *AutoSaver) { s.clock = c } }

func WithQuietPeriod(d time.Duration) Option { return func(s *AutoSaver) { s.delay = d } }

func WithStore(st Store) Option { return func(s *AutoSaver) { s.store = st } }

func WithEntityClient(c EntityClient) Option { return func(s *AutoSaver) { s.entities = c } }

func WithNotifier(n Notifier) Option { return func(s *AutoSaver) { s.notifier = n } }

func WithLogger(l *slog.Logger) Option { return func(s *AutoSaver) { s.logger = l } }

func WithErrorPolicy(p ErrorPolicy) Option { return func(s *AutoSaver) { s.policy = p } }

// WithOnRevert 在 Revert 策略恢复字段后回调，用于刷新界面。
func WithOnRevert(fn func(key string, value any)) Option {
	return func(s *AutoSaver) { s.onRevert = fn }
}

// WithNotifyNoChanges 在没有变化可保存时也提示一次。
func WithNotifyNoChanges(on bool) Option { return func(s *AutoSaver) { s.notifyNoChanges = on } }

// AutoSaver 管理一个文档的编辑会话：本地乐观修改，按字段防抖，
// 只把变化的顶层字段 PATCH 给服务端。
//
// 每次请求带一个递增序号；响应只会覆盖由更早请求写入的基线字段，
// 迟到的旧响应不会覆盖较新响应已经确认的值。请求本身从不取消。
type AutoSaver struct {
	id       string
	ctx      context.Context
	docs     DocumentClient
	entities EntityClient
	store    Store
	notifier Notifier
	logger   *slog.Logger
	clock    Clock
	delay    time.Duration
	policy   ErrorPolicy
	onRevert func(key string, value any)

	notifyNoChanges bool

	mu         sync.Mutex
	base       Snapshot
	local      Snapshot
	edits      map[string]uint64
	applied    map[string]uint64
	inflight   map[string]int
	requests   uint64
	debouncers map[string]*Debouncer[any]
	closed     bool
}

// New 读取文档并以其作为基线开始一个会话。
// ctx 的取消不会中断之后的后台保存，只提供日志等上下文值。
func New(ctx context.Context, documentID string, docs DocumentClient, opts ...Option) (*AutoSaver, error) {
	s := &AutoSaver{
		id:         documentID,
		ctx:        context.WithoutCancel(ctx),
		docs:       docs,
		notifier:   NopNotifier{},
		logger:     slog.Default(),
		clock:      RealClock{},
		delay:      DefaultQuietPeriod,
		policy:     KeepLocal,
		edits:      make(map[string]uint64),
		applied:    make(map[string]uint64),
		inflight:   make(map[string]int),
		debouncers: make(map[string]*Debouncer[any]),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = NewSessionStore(docs)
	}
	s.logger = s.logger.With("document_id", documentID)

	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	snap, err := SnapshotOf(doc)
	if err != nil {
		return nil, err
	}
	s.base = snap
	s.local = cloneSnapshot(snap)
	return s, nil
}

// DocumentID 返回会话对应的文档。
func (s *AutoSaver) DocumentID() string { return s.id }

// Set 立即更新本地值，并在该字段静默期结束后保存。
func (s *AutoSaver) Set(key string, value any) error {
	norm, err := Normalize(value)
	if err != nil {
		return fmt.Errorf("field %s: %w", key, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.local[key] = norm
	s.edits[key]++
	d, ok := s.debouncers[key]
	if !ok {
		d = NewDebouncer(s.clock, s.delay, func(any) { s.settle(key) })
		s.debouncers[key] = d
	}
	s.mu.Unlock()

	d.Push(norm)
	return nil
}

// Get 返回字段的本地值。
func (s *AutoSaver) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.local[key]
	return v, ok
}

// Local 返回本地状态的拷贝。
func (s *AutoSaver) Local() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.local)
}

// Baseline 返回最后确认的服务端状态的拷贝。
func (s *AutoSaver) Baseline() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.base)
}

// Dirty 报告是否存在尚未确认的本地修改。
func (s *AutoSaver) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, changed := Diff(s.base, s.local)
	return changed
}

// Save 取消所有挂起的防抖，把全部变化字段合并为一次 PATCH。
func (s *AutoSaver) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	for _, d := range s.debouncers {
		d.Cancel()
	}
	patch, changed := Diff(s.base, s.local)
	s.mu.Unlock()

	if !changed {
		s.noChanges()
		return nil
	}
	return s.push(ctx, patch)
}

// Flush 立即保存所有挂起的字段。
func (s *AutoSaver) Flush() {
	s.mu.Lock()
	pending := make([]*Debouncer[any], 0, len(s.debouncers))
	for _, d := range s.debouncers {
		pending = append(pending, d)
	}
	s.mu.Unlock()

	for _, d := range pending {
		d.Flush()
	}
}

// Close 停止所有防抖定时器。挂起但未发出的保存被丢弃，已发出的请求继续完成。
func (s *AutoSaver) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, d := range s.debouncers {
		d.Stop()
	}
}

// Refresh 丢弃缓存并重新拉取，采纳未被本地修改的字段。
// 仍有 PATCH 在途的字段保持不变，由该 PATCH 的响应确认。
func (s *AutoSaver) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.requests++
	seq := s.requests
	s.mu.Unlock()

	s.store.Invalidate(s.id)
	doc, err := s.store.Get(ctx, s.id)
	if err != nil {
		return err
	}
	snap, err := SnapshotOf(doc)
	if err != nil {
		return err
	}
	s.rebase(seq, nil, snap, true)
	return nil
}

func (s *AutoSaver) settle(key string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	value, ok := s.local[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	prev := Snapshot{}
	if old, ok := s.base[key]; ok {
		prev[key] = old
	}
	patch, changed := Diff(prev, Snapshot{key: value})
	s.mu.Unlock()

	if !changed {
		s.noChanges()
		return
	}
	_ = s.push(s.ctx, patch)
}

func (s *AutoSaver) noChanges() {
	if s.notifyNoChanges {
		s.notifier.Success("No changes to save")
	}
}

// push 发送 PATCH；成功时刷新缓存并重建基线，失败时按策略处理一次，不重试。
func (s *AutoSaver) push(ctx context.Context, patch Patch) error {
	s.mu.Lock()
	s.requests++
	seq := s.requests
	editsAt := make(map[string]uint64, len(patch))
	for key := range patch {
		editsAt[key] = s.edits[key]
		s.inflight[key]++
	}
	s.mu.Unlock()
	defer s.release(patch)

	logger := s.logger.With("seq", seq, "fields", patch.Keys())
	resp, err := s.docs.UpdateDocument(ctx, s.id, map[string]any(patch))
	if err != nil {
		logger.Error("autosave failed", "error", err)
		s.notifier.Error("Error saving changes", err)
		s.onFailure(editsAt)
		return fmt.Errorf("save document %s: %w", s.id, err)
	}

	s.store.Invalidate(s.id)
	doc, err := s.store.Get(ctx, s.id)
	if err != nil {
		logger.Warn("refetch after save failed, using patch response", "error", err)
		doc = resp
	}
	snap, err := SnapshotOf(doc)
	if err != nil {
		return err
	}
	s.rebase(seq, editsAt, snap, false)
	logger.Debug("autosave acknowledged")
	return nil
}

func (s *AutoSaver) release(patch Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range patch {
		if s.inflight[key]--; s.inflight[key] <= 0 {
			delete(s.inflight, key)
		}
	}
}

// rebase 把服务端快照采纳为基线。editsAt 记录请求发出时各字段的编辑计数，
// 只有之后未再编辑的字段才会用服务端值覆盖本地值。refresh 为 true 时跳过有在途 PATCH 的字段。
func (s *AutoSaver) rebase(seq uint64, editsAt map[string]uint64, snap Snapshot, refresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range snap {
		if refresh && s.inflight[key] > 0 {
			continue
		}
		if s.applied[key] > seq {
			s.logger.Debug("ignoring stale response for field", "field", key, "seq", seq)
			continue
		}
		old, hadOld := s.base[key]
		s.base[key] = value
		s.applied[key] = seq

		if at, ok := editsAt[key]; ok {
			if s.edits[key] == at {
				s.local[key] = value
			}
			continue
		}
		cur, hasLocal := s.local[key]
		if !hasLocal || (hadOld && Equal(cur, old)) {
			s.local[key] = value
		}
	}
}

func (s *AutoSaver) onFailure(editsAt map[string]uint64) {
	if s.policy != Revert {
		return
	}
	type reverted struct {
		key   string
		value any
	}
	var done []reverted

	s.mu.Lock()
	for key, at := range editsAt {
		if s.edits[key] != at {
			continue
		}
		value, ok := s.base[key]
		if ok {
			s.local[key] = value
		} else {
			delete(s.local, key)
		}
		done = append(done, reverted{key: key, value: value})
	}
	s.mu.Unlock()

	if s.onRevert == nil {
		return
	}
	for _, r := range done {
		s.onRevert(r.key, r.value)
	}
}

func cloneSnapshot(in Snapshot) Snapshot {
	out := make(Snapshot, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
