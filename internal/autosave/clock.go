package autosave

import "time"

// Timer 是 Clock.AfterFunc 返回的可取消定时器。
type Timer interface {
	Stop() bool
}

// Clock 抽象定时器来源，测试中替换为手动时钟。
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealClock 基于 time 包。
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
