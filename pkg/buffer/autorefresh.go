package buffer

import (
	"time"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/scheduler"
	"github.com/mnohosten/flowset/pkg/stream"
)

// SignalSelector returns a per-item signal channel that ticks whenever
// the item's watched field mutates externally.
type SignalSelector[T any] func(item T) <-chan struct{}

// hookCell is the mutable per-item state shared between the
// structural mirror below and the item's own signal-watching
// goroutine: idx always reflects the item's current position, so a
// tick that fires after the item has shifted still reports the right
// CurrentIndex.
type hookCell struct {
	idx    int
	cancel func()
}

// AutoRefresh emits a Refresh change for an item whenever its signal
// ticks, carrying the item's current index from an internal mirror of
// upstream content (spec §4.J "AutoRefresh"). bufferWindow, if
// non-zero, collapses ticks landing within the same window into one
// downstream change set instead of one per tick.
func AutoRefresh[T any](upstream stream.ChangeStream[T], signal SignalSelector[T], sched scheduler.Scheduler, bufferWindow time.Duration) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		var items []T
		var hooks []*hookCell
		pending := change.NewSet[T](0)
		var flushTimer scheduler.Cancel

		flushNow := func() {
			flushTimer = nil
			if pending.IsEmpty() {
				return
			}
			out := pending
			pending = change.NewSet[T](0)
			if o.OnNext != nil {
				o.OnNext(out)
			}
		}

		scheduleFlush := func() {
			if bufferWindow <= 0 {
				flushNow()
				return
			}
			if flushTimer != nil {
				return
			}
			flushTimer = sched.Schedule(bufferWindow, func() { sync.Do(flushNow) })
		}

		// reindex keeps every live hook's captured index in step with
		// its item's actual position. hooks is always kept exactly
		// parallel to items, so any Add/Remove that shifts positions
		// must re-stamp every cell's idx before the next signal tick
		// fires, or a surviving item's Refresh would carry a stale
		// CurrentIndex.
		reindex := func() {
			for i, c := range hooks {
				c.idx = i
			}
		}

		hook := func(c *hookCell, item T) {
			ch := signal(item)
			if ch == nil {
				return
			}
			done := make(chan struct{})
			go func() {
				for {
					select {
					case _, ok := <-ch:
						if !ok {
							return
						}
						sync.Do(func() {
							pending.Append(change.NewRefresh(item, c.idx))
							scheduleFlush()
						})
					case <-done:
						return
					}
				}
			}()
			c.cancel = func() { close(done) }
		}

		cancelUpstream := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						items = insertAt(items, c.CurrentIndex, c.Current)
						cell := &hookCell{idx: c.CurrentIndex}
						hooks = insertAt(hooks, c.CurrentIndex, cell)
						reindex()
						hook(cell, c.Current)

					case change.AddRange:
						newCells := make([]*hookCell, len(c.Items))
						for i, item := range c.Items {
							idx := c.StartingIndex + i
							items = insertAt(items, idx, item)
							cell := &hookCell{idx: idx}
							hooks = insertAt(hooks, idx, cell)
							newCells[i] = cell
						}
						reindex()
						for i, item := range c.Items {
							hook(newCells[i], item)
						}

					case change.Remove:
						items = removeAt(items, c.CurrentIndex)
						if hooks[c.CurrentIndex].cancel != nil {
							hooks[c.CurrentIndex].cancel()
						}
						hooks = removeAt(hooks, c.CurrentIndex)
						reindex()

					case change.Clear:
						items = items[:0]
						for _, cell := range hooks {
							if cell.cancel != nil {
								cell.cancel()
							}
						}
						hooks = hooks[:0]
					}
				}
				if o.OnNext != nil {
					o.OnNext(cs)
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})

		return func() {
			cancelUpstream()
			for _, cell := range hooks {
				if cell.cancel != nil {
					cell.cancel()
				}
			}
			if flushTimer != nil {
				flushTimer()
			}
		}
	})
}

func insertAt[T any](items []T, i int, x T) []T {
	items = append(items, x)
	copy(items[i+1:], items[i:])
	items[i] = x
	return items
}

func removeAt[T any](items []T, i int) []T {
	return append(items[:i], items[i+1:]...)
}
