package iobuild

import (
	"iter"

	"github.com/cheggaaa/pb/v3"
)

// newProgressBar creates a new progress bar with consistent
// settings.
func newProgressBar(
	total int,
	prefix string,
) *pb.ProgressBar {
	bar := pb.Full.Start(total)
	bar.Set("prefix", prefix)
	bar.Set(pb.CleanOnFinish, true)
	return bar
}

// withProgress increments bar for every element of seq.
func withProgress[T any](seq iter.Seq[T], bar *pb.ProgressBar) iter.Seq[T] {
	return func(yield func(T) bool) {
		for v := range seq {
			bar.Increment()
			if !yield(v) {
				return
			}
		}
	}
}
