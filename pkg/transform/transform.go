// Package transform implements Transform, TransformAsync and
// TransformMany (spec §4.D, component G): derived streams that map
// each source item to an output item (or a set of output items) while
// keeping a parallel positional container list in sync with the
// source.
package transform

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Factory produces an output from a source item, the previous output
// at that position (if any; hasPrevious is false on first computation), and
// the item's current index.
type Factory[T, U any] func(item T, previous U, hasPrevious bool, index int) U

// RefreshPolicy controls how an upstream Refresh is handled.
type RefreshPolicy int

const (
	// Recompute re-runs Factory with the previous output available.
	Recompute RefreshPolicy = iota

	// Passthrough propagates a positional Refresh downstream without
	// recomputation.
	Passthrough
)

type container[T, U any] struct {
	source T
	output U
}

// Transform derives a stream of U by applying factory to every source
// item, maintaining a parallel (source, output) container list so
// later changes can look up the previous output for a position.
func Transform[T, U any](upstream stream.ChangeStream[T], factory Factory[T, U], policy RefreshPolicy) stream.ChangeStream[U] {
	return stream.New(func(o stream.Observer[U]) stream.Cancel {
		var containers []container[T, U]

		run := func(idx int, item T) U {
			var prev U
			hasPrev := false
			if idx < len(containers) {
				prev = containers[idx].output
				hasPrev = true
			}
			return factory(item, prev, hasPrev, idx)
		}

		return upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				out := change.NewSet[U](cs.Count())
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						var none U
						u := factory(c.Current, none, false, c.CurrentIndex)
						containers = insertAt(containers, c.CurrentIndex, container[T, U]{c.Current, u})
						out.Append(change.NewAdd(u, c.CurrentIndex))

					case change.AddRange:
						us := make([]U, len(c.Items))
						var none U
						for i, item := range c.Items {
							idx := c.StartingIndex + i
							us[i] = factory(item, none, false, idx)
						}
						for i, item := range c.Items {
							idx := c.StartingIndex + i
							containers = insertAt(containers, idx, container[T, U]{item, us[i]})
						}
						out.Append(change.NewAddRange(us, c.StartingIndex))

					case change.Remove:
						u := containers[c.CurrentIndex].output
						containers = removeAt(containers, c.CurrentIndex)
						out.Append(change.NewRemove(u, c.CurrentIndex))

					case change.RemoveRange:
						us := make([]U, len(c.Items))
						for i := range c.Items {
							us[i] = containers[c.StartingIndex+i].output
						}
						containers = removeRangeAt(containers, c.StartingIndex, len(c.Items))
						out.Append(change.NewRemoveRange(us, c.StartingIndex))

					case change.Replace:
						u := run(c.CurrentIndex, c.Current)
						prevU := containers[c.CurrentIndex].output
						containers[c.CurrentIndex] = container[T, U]{c.Current, u}
						out.Append(change.NewReplace(u, prevU, c.CurrentIndex))

					case change.Refresh:
						if policy == Passthrough {
							out.Append(change.NewRefresh(containers[c.CurrentIndex].output, c.CurrentIndex))
							continue
						}
						u := run(c.CurrentIndex, c.Current)
						containers[c.CurrentIndex] = container[T, U]{c.Current, u}
						out.Append(change.NewRefresh(u, c.CurrentIndex))

					case change.Moved:
						item := containers[c.PreviousIndex]
						containers = removeAt(containers, c.PreviousIndex)
						containers = insertAt(containers, c.CurrentIndex, item)
						out.Append(change.NewMoved(item.output, c.CurrentIndex, c.PreviousIndex))

					case change.Clear:
						us := make([]U, len(containers))
						for i, ct := range containers {
							us[i] = ct.output
						}
						containers = containers[:0]
						out.Append(change.NewClear(us))
					}
				}
				if !out.IsEmpty() {
					o.OnNext(out)
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})
	})
}

// AsyncFactory is the awaited form of Factory; TransformAsync blocks
// on it synchronously per item (batches await every per-item result
// before emitting, per spec §4.D — no fire-and-forget concurrency that
// would violate the single-pipeline-lock model of spec §5).
type AsyncFactory[T, U any] func(item T, previous U, hasPrevious bool, index int) (U, error)

// TransformAsync is Transform with a factory that can fail. A factory
// error is surfaced via OnError and the batch is abandoned. The
// returned stream may be subscribed to more than once under spec §5's
// shared-resource policy, so the error state lives per subscription,
// not per stream: one subscriber's factory error must never poison
// another.
func TransformAsync[T, U any](upstream stream.ChangeStream[T], factory AsyncFactory[T, U]) stream.ChangeStream[U] {
	return stream.New(func(o stream.Observer[U]) stream.Cancel {
		var firstErr error
		wrapped := func(item T, previous U, hasPrevious bool, index int) U {
			if firstErr != nil {
				var zero U
				return zero
			}
			u, err := factory(item, previous, hasPrevious, index)
			if err != nil {
				firstErr = err
				return u
			}
			return u
		}

		return Transform(upstream, wrapped, Recompute).Subscribe(stream.Observer[U]{
			OnNext: func(cs *change.Set[U]) {
				if firstErr != nil {
					if o.OnError != nil {
						o.OnError(firstErr)
					}
					return
				}
				if o.OnNext != nil {
					o.OnNext(cs)
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})
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

func removeRangeAt[T any](items []T, i, n int) []T {
	return append(items[:i], items[i+n:]...)
}
