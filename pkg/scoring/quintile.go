// Package scoring ranks customer metrics into 1-5 quintile scores.
package scoring

import (
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfmerr"
	"rfm-segmentation/pkg/segment"
)

// Bins is the number of score groups.
const Bins = 5

// Bin returns the 1-based score group of the customer at rank pos (0-based) among n.
// Groups are contiguous and their sizes differ by at most one; the first n%Bins
// groups carry the extra member.
func Bin(pos, n int) int {
	size, rem := n/Bins, n%Bins
	big := rem * (size + 1)
	if pos < big {
		return pos/(size+1) + 1
	}
	return rem + (pos-big)/size + 1
}

// RFMCode renders the three scores as a three-digit code in R, F, M order.
func RFMCode(r, f, m int) string {
	return fmt.Sprintf("%d%d%d", r, f, m)
}

// Score ranks every customer on each metric and assigns segments. Ranking is by
// position, not value: equal metrics on a group boundary may land in different
// groups, ordered by their position in metrics.
func Score(metrics []models.CustomerMetrics) ([]models.CustomerScore, error) {
	n := len(metrics)
	if n == 0 {
		return nil, rfmerr.Preconditionf("no customers to score")
	}

	var (
		recency   []int
		frequency []int
		monetary  []int
		g         errgroup.Group
	)
	g.Go(func() error {
		// Most recent purchases rank last and get the highest score.
		recency = rank(n, func(a, b int) bool { return metrics[a].Recency > metrics[b].Recency })
		return nil
	})
	g.Go(func() error {
		frequency = rank(n, func(a, b int) bool { return metrics[a].Frequency < metrics[b].Frequency })
		return nil
	})
	g.Go(func() error {
		monetary = rank(n, func(a, b int) bool { return metrics[a].Monetary.Cmp(&metrics[b].Monetary) < 0 })
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.CustomerScore, n)
	for i := range metrics {
		r, f, m := recency[i], frequency[i], monetary[i]
		out[i] = models.CustomerScore{
			CustomerMetrics: metrics[i],
			RecencyScore:    r,
			FrequencyScore:  f,
			MonetaryScore:   m,
			RFMCode:         RFMCode(r, f, m),
			Segment:         segment.Classify(r, f),
		}
	}
	return out, nil
}

// rank stable-sorts customer indexes with less and returns each customer's group.
func rank(n int, less func(a, b int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })

	scores := make([]int, n)
	for pos, idx := range order {
		scores[idx] = Bin(pos, n)
	}
	return scores
}
