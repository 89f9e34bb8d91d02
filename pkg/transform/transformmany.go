package transform

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// ManyFactory yields the (plain, already-materialised) children of one
// parent item.
type ManyFactory[T, C any] func(parent T) []C

// parentEntry tracks one parent's currently observed children plus the
// position its children occupy in the flattened output.
type parentEntry[C any] struct {
	children []C
}

// TransformMany flattens a per-parent child factory into a single
// output stream (spec §4.D, "plain iterable children" variant).
// equals identifies a child across parent replaces so the diff on a
// parent Replace only touches the children that actually changed.
func TransformMany[T, C any](upstream stream.ChangeStream[T], factory ManyFactory[T, C], equals func(a, b C) bool) stream.ChangeStream[C] {
	return stream.New(func(o stream.Observer[C]) stream.Cancel {
		var parents []parentEntry[C]

		offsetOf := func(parentIdx int) int {
			off := 0
			for i := 0; i < parentIdx && i < len(parents); i++ {
				off += len(parents[i].children)
			}
			return off
		}

		return upstream.Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				out := change.NewSet[C](cs.Count())
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						children := factory(c.Current)
						off := offsetOf(c.CurrentIndex)
						parents = insertAt(parents, c.CurrentIndex, parentEntry[C]{children})
						if len(children) > 0 {
							out.Append(change.NewAddRange(children, off))
						}

					case change.AddRange:
						off := offsetOf(c.StartingIndex)
						for i, item := range c.Items {
							children := factory(item)
							parents = insertAt(parents, c.StartingIndex+i, parentEntry[C]{children})
							if len(children) > 0 {
								out.Append(change.NewAddRange(children, off))
								off += len(children)
							}
						}

					case change.Remove:
						off := offsetOf(c.CurrentIndex)
						children := parents[c.CurrentIndex].children
						parents = removeAt(parents, c.CurrentIndex)
						if len(children) > 0 {
							out.Append(change.NewRemoveRange(children, off))
						}

					case change.RemoveRange:
						off := offsetOf(c.StartingIndex)
						var removed []C
						for i := 0; i < len(c.Items); i++ {
							removed = append(removed, parents[c.StartingIndex+i].children...)
						}
						parents = removeRangeAt(parents, c.StartingIndex, len(c.Items))
						if len(removed) > 0 {
							out.Append(change.NewRemoveRange(removed, off))
						}

					case change.Replace:
						off := offsetOf(c.CurrentIndex)
						old := parents[c.CurrentIndex].children
						next := factory(c.Current)

						var removed, added []C
						for _, oc := range old {
							found := false
							for _, nc := range next {
								if equals(oc, nc) {
									found = true
									break
								}
							}
							if !found {
								removed = append(removed, oc)
							}
						}
						for _, nc := range next {
							found := false
							for _, oc := range old {
								if equals(oc, nc) {
									found = true
									break
								}
							}
							if !found {
								added = append(added, nc)
							}
						}
						parents[c.CurrentIndex] = parentEntry[C]{next}
						if len(removed) > 0 {
							out.Append(change.NewRemoveRange(removed, off))
						}
						if len(added) > 0 {
							out.Append(change.NewAddRange(added, off+len(old)-len(removed)))
						}

					case change.Clear:
						var all []C
						for _, p := range parents {
							all = append(all, p.children...)
						}
						parents = parents[:0]
						if len(all) > 0 {
							out.Append(change.NewClear(all))
						}
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

// ChildSource is the minimal contract a "live" (observable-collection)
// child source must satisfy: the kernel never depends on a concrete UI
// collection type, only on this interface (spec §1's exclusion of
// "binding to UI collections" from kernel scope).
type ChildSource[C any] interface {
	Connect() stream.ChangeStream[C]
}

// ReadOnlyChildSource is a ChildSource whose contents the kernel must
// never mutate; it exists purely to document that TransformManyLive
// only ever calls Connect, never a mutator, on the sources it is given.
type ReadOnlyChildSource[C any] interface {
	ChildSource[C]
}

// LiveFactory yields a live child source per parent.
type LiveFactory[T, C any] func(parent T) ChildSource[C]

// TransformManyLive is the observable-collection-children variant of
// TransformMany: each parent's children arrive over their own live
// change stream. A parent Add subscribes to its children, a parent
// Remove tears that subscription down and a parent Clear tears all of
// them down; parent AddRange, RemoveRange, Replace and Moved changes
// are not handled.
func TransformManyLive[T, C any](upstream stream.ChangeStream[T], factory LiveFactory[T, C]) stream.ChangeStream[C] {
	return stream.New(func(o stream.Observer[C]) stream.Cancel {
		sync := &stream.Synchronize{}
		var cancels []stream.Cancel
		var counts []int

		offsetOf := func(parentIdx int) int {
			off := 0
			for i := 0; i < parentIdx && i < len(counts); i++ {
				off += counts[i]
			}
			return off
		}

		subscribeChild := func(parentIdx int, src ChildSource[C]) stream.Cancel {
			return src.Connect().Subscribe(stream.Observer[C]{
				OnNext: func(cs *change.Set[C]) {
					sync.Do(func() {
						off := offsetOf(parentIdx)
						counts[parentIdx] += cs.Adds() - cs.Removes()
						relocated := change.NewSet[C](cs.Count())
						for _, c := range cs.Changes() {
							switch c.Reason {
							case change.Add:
								relocated.Append(change.NewAdd(c.Current, off+c.CurrentIndex))
							case change.AddRange:
								relocated.Append(change.NewAddRange(c.Items, off+c.StartingIndex))
							case change.Remove:
								relocated.Append(change.NewRemove(c.Current, off+c.CurrentIndex))
							case change.RemoveRange:
								relocated.Append(change.NewRemoveRange(c.Items, off+c.StartingIndex))
							case change.Replace:
								relocated.Append(change.NewReplace(c.Current, c.Previous, off+c.CurrentIndex))
							case change.Refresh:
								relocated.Append(change.NewRefresh(c.Current, off+c.CurrentIndex))
							case change.Moved:
								relocated.Append(change.NewMoved(c.Current, off+c.CurrentIndex, off+c.PreviousIndex))
							case change.Clear:
								// A child stream's Clear wipes only
								// that child's own range of the
								// flattened output, not the whole
								// downstream snapshot (applyOne's
								// Clear clears everything it is
								// given), so it must be translated
								// into a windowed RemoveRange rather
								// than forwarded as-is.
								relocated.Append(change.NewRemoveRange(c.Items, off))
							}
						}
						if o.OnNext != nil {
							o.OnNext(relocated)
						}
					})
				},
			})
		}

		cancelUpstream := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				for _, c := range cs.Changes() {
					switch c.Reason {
					case change.Add:
						src := factory(c.Current)
						cancels = insertAt(cancels, c.CurrentIndex, func() {})
						counts = insertAt(counts, c.CurrentIndex, 0)
						cancels[c.CurrentIndex] = subscribeChild(c.CurrentIndex, src)

					case change.Remove:
						cancels[c.CurrentIndex]()
						cancels = removeAt(cancels, c.CurrentIndex)
						counts = removeAt(counts, c.CurrentIndex)

					case change.Clear:
						for _, cancel := range cancels {
							cancel()
						}
						cancels = cancels[:0]
						counts = counts[:0]
					}
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})

		return func() {
			cancelUpstream()
			for _, cancel := range cancels {
				cancel()
			}
		}
	})
}
