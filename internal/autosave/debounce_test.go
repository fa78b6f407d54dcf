package autosave_test

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"resumeStudio/internal/autosave"
	"resumeStudio/internal/testutil"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	clock := testutil.NewManualClock()
	var got []int
	d := autosave.NewDebouncer(clock, 500*time.Millisecond, func(v int) { got = append(got, v) })

	for i := 1; i <= 10; i++ {
		d.Push(i)
		clock.Advance(40 * time.Millisecond)
	}
	assert.Equal(t, len(got), 0)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, got, []int{10})

	clock.Advance(5 * time.Second)
	assert.Equal(t, got, []int{10})
}

func TestDebouncer_EachQuietWindowEmits(t *testing.T) {
	clock := testutil.NewManualClock()
	var got []string
	d := autosave.NewDebouncer(clock, 500*time.Millisecond, func(v string) { got = append(got, v) })

	d.Push("a")
	clock.Advance(600 * time.Millisecond)
	d.Push("b")
	clock.Advance(499 * time.Millisecond)
	assert.Equal(t, got, []string{"a"})
	clock.Advance(time.Millisecond)
	assert.Equal(t, got, []string{"a", "b"})
}

func TestDebouncer_StopCancelsPendingEmission(t *testing.T) {
	clock := testutil.NewManualClock()
	fired := 0
	d := autosave.NewDebouncer(clock, 500*time.Millisecond, func(string) { fired++ })

	d.Push("x")
	clock.Advance(100 * time.Millisecond)
	d.Stop()
	clock.Advance(time.Second)

	assert.Equal(t, fired, 0)
	assert.Equal(t, clock.Pending(), 0)

	d.Push("y")
	clock.Advance(time.Second)
	assert.Equal(t, fired, 0)
}

func TestDebouncer_FlushAndCancel(t *testing.T) {
	clock := testutil.NewManualClock()
	var got []string
	d := autosave.NewDebouncer(clock, 500*time.Millisecond, func(v string) { got = append(got, v) })

	assert.Equal(t, d.Flush(), false)

	d.Push("now")
	assert.Equal(t, d.Pending(), true)
	assert.Equal(t, d.Flush(), true)
	assert.Equal(t, got, []string{"now"})
	clock.Advance(time.Second)
	assert.Equal(t, got, []string{"now"})

	d.Push("dropped")
	assert.Equal(t, d.Cancel(), true)
	clock.Advance(time.Second)
	assert.Equal(t, got, []string{"now"})

	d.Push("later")
	clock.Advance(time.Second)
	assert.Equal(t, got, []string{"now", "later"})
}

func TestDebouncer_DefaultQuietPeriod(t *testing.T) {
	clock := testutil.NewManualClock()
	fired := 0
	d := autosave.NewDebouncer(clock, 0, func(int) { fired++ })

	d.Push(1)
	clock.Advance(autosave.DefaultQuietPeriod - time.Millisecond)
	assert.Equal(t, fired, 0)
	clock.Advance(time.Millisecond)
	assert.Equal(t, fired, 1)
}
