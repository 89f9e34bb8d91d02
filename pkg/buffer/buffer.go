// Package buffer implements BufferIf and Batch/Buffer (spec §4.J,
// component M): accumulating upstream changes under a pause condition
// or a fixed time window and flattening them into one emission.
package buffer

import (
	"time"

	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/scheduler"
	"github.com/mnohosten/flowset/pkg/stream"
)

func merge[T any](sets []*change.Set[T]) *change.Set[T] {
	out := change.NewSet[T](0)
	for _, cs := range sets {
		for _, c := range cs.Changes() {
			out.Append(c)
		}
	}
	return out
}

// BufferIf buffers upstream changes locally while paused is true and
// flushes them as one change set the moment paused transitions to
// false. timeout, if non-zero, forces an automatic un-pause after that
// duration has elapsed since the pause began. initiallyPaused seeds
// the starting state (spec §4.J: "initial pause state is
// configurable").
func BufferIf[T any](upstream stream.ChangeStream[T], paused stream.ChangeStream[bool], initiallyPaused bool, timeout time.Duration, sched scheduler.Scheduler) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		isPaused := initiallyPaused
		var pending []*change.Set[T]
		var timeoutCancel scheduler.Cancel

		flush := func() {
			if len(pending) == 0 {
				return
			}
			out := merge(pending)
			pending = nil
			if !out.IsEmpty() && o.OnNext != nil {
				o.OnNext(out)
			}
		}

		setPaused := func(p bool) {
			if isPaused == p {
				return
			}
			isPaused = p
			if timeoutCancel != nil {
				timeoutCancel()
				timeoutCancel = nil
			}
			if p {
				if timeout > 0 {
					timeoutCancel = sched.Schedule(timeout, func() {
						sync.Do(func() {
							isPaused = false
							flush()
						})
					})
				}
				return
			}
			flush()
		}

		if isPaused && timeout > 0 {
			timeoutCancel = sched.Schedule(timeout, func() {
				sync.Do(func() {
					isPaused = false
					flush()
				})
			})
		}

		cancelData := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				if isPaused {
					pending = append(pending, cs)
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

		cancelPause := stream.Guard(sync, paused).Subscribe(stream.Observer[bool]{
			OnNext: func(cs *change.Set[bool]) {
				for _, c := range cs.Changes() {
					if c.Reason == change.Add || c.Reason == change.Refresh || c.Reason == change.Replace {
						setPaused(c.Current)
					}
				}
			},
		})

		return func() {
			if timeoutCancel != nil {
				timeoutCancel()
			}
			cancelData()
			cancelPause()
		}
	})
}

// Batch collects upstream changes over a fixed window on sched and
// emits one flattened change set per window that actually saw
// activity (spec §4.J "Batch / Buffer").
func Batch[T any](upstream stream.ChangeStream[T], window time.Duration, sched scheduler.Scheduler) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		var pending []*change.Set[T]
		var timer scheduler.Cancel

		flush := func() {
			timer = nil
			if len(pending) == 0 {
				return
			}
			out := merge(pending)
			pending = nil
			if !out.IsEmpty() && o.OnNext != nil {
				o.OnNext(out)
			}
		}

		cancelData := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				pending = append(pending, cs)
				if timer == nil {
					timer = sched.Schedule(window, func() { sync.Do(flush) })
				}
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})

		return func() {
			if timer != nil {
				timer()
			}
			cancelData()
		}
	})
}
