// Package page implements Page and Virtualise (spec §4.G, component
// J): a windowed view over the full upstream content, re-diffed on
// every upstream change or window-request change.
package page

import (
	"github.com/mnohosten/flowset/pkg/change"
	"github.com/mnohosten/flowset/pkg/stream"
)

// Request describes the window to display: either a 1-based page
// number or an explicit start index, combined with a page size.
type Request struct {
	Page       int
	StartIndex int
	Size       int
	ByPage     bool
}

// Response reports the window actually produced.
type Response struct {
	Count      int
	PageOrSkip int
	Total      int
	Pages      int
}

// ResponseSink receives one Response per processed batch, alongside
// the corresponding change set delivered through the returned stream.
type ResponseSink func(Response)

// Page derives a windowed stream: requests supplies the window
// parameters. Upstream batches that arrive before the first request
// are held and processed one at a time, in order, once it arrives.
// onResponse, if non-nil, is invoked
// once per emitted batch with the window metadata (spec §4.G "window
// responses are emitted alongside change sets").
func Page[T any](upstream stream.ChangeStream[T], requests stream.ChangeStream[Request], onResponse ResponseSink) stream.ChangeStream[T] {
	return stream.New(func(o stream.Observer[T]) stream.Cancel {
		sync := &stream.Synchronize{}
		var full []T
		var window []T
		var req Request
		haveReq := false
		var early []*change.Set[T]

		equals := func(a, b T) bool { return any(a) == any(b) }

		recompute := func(upstreamChanges []change.Change[T]) {
			skip, size := resolveWindow(req, len(full))
			newWindow := windowSlice(full, skip, size)

			out := change.NewSet[T](0)

			// Step 4: an upstream Moved wholly inside the window is
			// translated directly into a windowed Moved, rather than
			// left to the positional diff below, which only ever
			// sees membership and can't recover the original reason.
			for _, c := range upstreamChanges {
				if c.Reason != change.Moved {
					continue
				}
				if c.PreviousIndex < skip || c.PreviousIndex >= skip+size {
					continue
				}
				if c.CurrentIndex < skip || c.CurrentIndex >= skip+size {
					continue
				}
				out.Append(change.NewMoved(c.Current, c.CurrentIndex-skip, c.PreviousIndex-skip))
			}

			for _, c := range diff(window, newWindow, equals).Changes() {
				out.Append(c)
			}
			window = newWindow

			if !out.IsEmpty() && o.OnNext != nil {
				o.OnNext(out)
			}
			if onResponse != nil {
				pages := 0
				if size > 0 {
					pages = (len(full) + size - 1) / size
				}
				onResponse(Response{Count: len(newWindow), PageOrSkip: skip, Total: len(full), Pages: pages})
			}
		}

		cancelData := stream.Guard(sync, upstream).Subscribe(stream.Observer[T]{
			OnNext: func(cs *change.Set[T]) {
				if !haveReq {
					early = append(early, cs)
					return
				}
				full = change.Apply(full, cs)
				recompute(cs.Changes())
			},
			OnError:    o.OnError,
			OnComplete: o.OnComplete,
			OnLoaded:   o.OnLoaded,
		})

		cancelReq := stream.Guard(sync, requests).Subscribe(stream.Observer[Request]{
			OnNext: func(cs *change.Set[Request]) {
				if cs.IsEmpty() {
					return
				}
				last := cs.Changes()[len(cs.Changes())-1]
				req = last.Current
				haveReq = true
				replay := early
				early = nil
				if len(replay) == 0 {
					recompute(nil)
				}
				for _, held := range replay {
					full = change.Apply(full, held)
					recompute(held.Changes())
				}
			},
		})

		return func() {
			cancelData()
			cancelReq()
		}
	})
}

func resolveWindow(req Request, total int) (skip, size int) {
	size = req.Size
	if size <= 0 {
		return 0, 0
	}
	if req.ByPage {
		page := req.Page
		if page < 1 {
			page = 1
		}
		skip = (page - 1) * size
	} else {
		skip = req.StartIndex
		if skip < 0 {
			skip = 0
		}
	}
	if skip > total {
		skip = total
	}
	return skip, size
}

func windowSlice[T any](full []T, skip, size int) []T {
	if size <= 0 || skip >= len(full) {
		return nil
	}
	end := skip + size
	if end > len(full) {
		end = len(full)
	}
	out := make([]T, end-skip)
	copy(out, full[skip:end])
	return out
}

// diff computes the minimal Replace/Remove/Add edits to turn prev
// into next, preserving next's order (spec §4.G step 3, "diff W
// against the previous window"). Items are matched by value (one
// prev entry to at most one next entry) rather than by bare
// membership, so a duplicate value in prev can't falsely "cover" two
// distinct entries in next. Step 5 ("detect in-window replaces by
// reference equality on overlapping positions"): once matching is
// done, any position common to both windows whose prev/next entries
// are both otherwise unmatched is reported as a same-position Replace
// instead of a same-position Remove+Add pair.
func diff[T any](prev, next []T, equals func(a, b T) bool) *change.Set[T] {
	out := change.NewSet[T](0)

	matchedPrev := make([]bool, len(prev))
	matchedNext := make([]bool, len(next))
	for i, p := range prev {
		for j, n := range next {
			if matchedNext[j] {
				continue
			}
			if equals(p, n) {
				matchedPrev[i] = true
				matchedNext[j] = true
				break
			}
		}
	}

	overlap := len(prev)
	if len(next) < overlap {
		overlap = len(next)
	}
	for i := 0; i < overlap; i++ {
		if matchedPrev[i] || matchedNext[i] {
			continue
		}
		out.Append(change.NewReplace(next[i], prev[i], i))
		matchedPrev[i] = true
		matchedNext[i] = true
	}

	var removed []T
	for i, p := range prev {
		if !matchedPrev[i] {
			removed = append(removed, p)
		}
	}
	if len(removed) > 0 {
		out.Append(change.NewRemoveRange(removed, 0))
	}

	var added []T
	addStart := -1
	for i, n := range next {
		if !matchedNext[i] {
			if addStart == -1 {
				addStart = i
			}
			added = append(added, n)
		}
	}
	if len(added) > 0 {
		out.Append(change.NewAddRange(added, addStart))
	}

	return out
}
