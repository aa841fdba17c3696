package sax

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DiscretizeParallel produces the same records as Discretize but computes the
// words of chunkCount disjoint ranges of window starts concurrently. Each
// worker writes only its own slice of the result; numerosity reduction runs
// once over the merged words, so decisions across chunk seams match the
// sequential result.
func DiscretizeParallel(ctx context.Context, series []float64, chunkCount int, windowSize int,
	paaSize int, cuts []float64, strategy Strategy, normThreshold float64) (Records, error) {
	if windowSize <= 0 || chunkCount <= 1 {
		return Discretize(series, windowSize, paaSize, cuts, strategy, normThreshold)
	}
	if err := checkParameters(series, windowSize, paaSize, cuts); err != nil {
		return nil, err
	}

	count := len(series) - windowSize + 1
	if chunkCount > count {
		chunkCount = count
	}
	words := make([]string, count)
	indexes := make([]int, count)
	chunkLength := (count + chunkCount - 1) / chunkCount

	g, ctx := errgroup.WithContext(ctx)
	for c := 0; c < chunkCount; c++ {
		from := c * chunkLength
		to := from + chunkLength
		if to > count {
			to = count
		}
		if from >= to {
			break
		}
		g.Go(func() error {
			for i := from; i < to; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				w, err := windowWord(series[i:i+windowSize], paaSize, cuts, normThreshold)
				if err != nil {
					return fmt.Errorf("chunk [%d, %d): %w", from, to, err)
				}
				words[i] = w
				indexes[i] = i
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reduce(words, indexes, strategy), nil
}
