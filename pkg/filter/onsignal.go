package filter

import (
	"time"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/scheduler"
	"github.com/mnohosten/flowset/pkg/stream"
)

// hookCell is the mutable per-item state shared between the positional
// mirror below and the item's own signal-watching goroutine: idx always
// reflects the item's current position, so a tick that fires after the
// item has shifted still reports the right CurrentIndex.
type hookCell struct {
	idx    int
	cancel func()
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

// OnObservable combines Immutable with a per-item signal supplied by
// the caller: whenever signal(item) ticks, the corresponding upstream
// item is re-evaluated against predicate as if it had been refreshed.
// Spec §9: "operators that need [property-change reflection] accept...
// an explicit per-item observable supplied by the caller. Tests use
// the explicit form." bufferWindow, if non-zero, coalesces ticks that
// land within the same window into one upstream Refresh batch instead
// of emitting one change set per tick.
func OnObservable[T any](
	upstream stream.ChangeStream[T],
	predicate func(T) bool,
	signal func(T) <-chan struct{},
	sched scheduler.Scheduler,
	bufferWindow time.Duration,
) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		f := &state[T]{predicate: predicate}

		var hooks []*hookCell
		pending := change.NewSet[T](0)
		var flushTimer scheduler.Cancel

		var flushNow func()
		flushNow = func() {
			if pending.IsEmpty() {
				return
			}
			out := pending
			pending = change.NewSet[T](0)
			f.apply(out, o)
		}

		scheduleFlush := func() {
			if bufferWindow <= 0 {
				flushNow()
				return
			}
			if flushTimer != nil {
				return
			}
			flushTimer = sched.Schedule(bufferWindow, func() {
				sync.Do(func() {
					flushTimer = nil
					flushNow()
				})
			})
		}

		// reindex keeps every live hook's captured index in step with
		// its item's actual position. hooks is always kept exactly
		// parallel to the upstream content; any Add/Remove that shifts
		// positions must re-stamp every cell's idx before the next
		// signal tick fires, or a surviving item's Refresh would carry
		// a stale CurrentIndex.
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
				f.apply(cs, o)
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						cell := &hookCell{idx: c.CurrentIndex}
						hooks = insertAt(hooks, c.CurrentIndex, cell)
						reindex()
						hook(cell, c.Current)

					case change.AddRange:
						newCells := make([]*hookCell, len(c.Items))
						for i := range c.Items {
							idx := c.StartingIndex + i
							cell := &hookCell{idx: idx}
							hooks = insertAt(hooks, idx, cell)
							newCells[i] = cell
						}
						reindex()
						for i, item := range c.Items {
							hook(newCells[i], item)
						}

					case change.Remove:
						if hooks[c.CurrentIndex].cancel != nil {
							hooks[c.CurrentIndex].cancel()
						}
						hooks = removeAt(hooks, c.CurrentIndex)
						reindex()

					case change.Clear:
						for _, cell := range hooks {
							if cell.cancel != nil {
								cell.cancel()
							}
						}
						hooks = hooks[:0]
					}
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
		}
	})
}
