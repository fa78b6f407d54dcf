package autosave

import (
	"sync"
	"time"
)

// DefaultQuietPeriod 表单输入的默认静默期。
const DefaultQuietPeriod = 500 * time.Millisecond

// Debouncer 合并快速变化的值：只有输入静默 delay 之后才发出最后一个值。
// 每次 Push 重置定时器；中间值被丢弃。Stop 之后不会再有任何发出。
type Debouncer[T any] struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	emit    func(T)
	timer   Timer
	gen     uint64
	value   T
	pending bool
	stopped bool
}

// NewDebouncer 创建 Debouncer；delay <= 0 时使用 DefaultQuietPeriod。
func NewDebouncer[T any](clock Clock, delay time.Duration, emit func(T)) *Debouncer[T] {
	if clock == nil {
		clock = RealClock{}
	}
	if delay <= 0 {
		delay = DefaultQuietPeriod
	}
	return &Debouncer[T]{clock: clock, delay: delay, emit: emit}
}

// Push 记录最新值并重新开始静默期。
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.value = v
	d.pending = true
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire 只处理最新一代定时器，旧定时器即使已经触发也被忽略。
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.emit(v)
}

// Flush 立即发出挂起的值（如果有）。
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.value
	d.pending = false
	d.gen++
	d.mu.Unlock()

	d.emit(v)
	return true
}

// Cancel 丢弃挂起的值但保持可用，之后仍可 Push。
func (d *Debouncer[T]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	had := d.pending
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return had
}

// Pending 报告是否有尚未发出的值。
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending && !d.stopped
}

// Stop 取消挂起的发出，并拒绝之后的 Push。
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
