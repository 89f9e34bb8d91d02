// Package adapters implements EditDiff, ToObservableChangeSet,
// DisposeMany, SubscribeMany, OnBeingAdded and OnBeingRemoved (spec
// §4.L/§4.M, components O): the boundary helpers that connect a
// source-list to plain values and plain values to an acquire/release
// lifecycle contract.
package adapters

import "github.com/mnohosten/flowset/pkg/collection"

// EditDiff computes the minimal Add/Remove set between target's
// current contents and next under equals, and applies it atomically
// inside one scoped edit so subscribers observe a single change set
// (spec §4.L "EditDiff").
func EditDiff[T any](target *collection.SourceList[T], next []T, equals func(a, b T) bool) error {
	return target.Edit(func(l *collection.ChangeAwareList[T]) error {
		current := l.Items()

		keepCurrent := make([]bool, len(current))
		matchedNext := make([]bool, len(next))
		for i, c := range current {
			for j, n := range next {
				if matchedNext[j] {
					continue
				}
				if equals(c, n) {
					keepCurrent[i] = true
					matchedNext[j] = true
					break
				}
			}
		}

		for i := len(current) - 1; i >= 0; i-- {
			if !keepCurrent[i] {
				if err := l.RemoveAt(i); err != nil {
					return err
				}
			}
		}

		for j, n := range next {
			if !matchedNext[j] {
				l.Add(n)
			}
		}
		return nil
	})
}
