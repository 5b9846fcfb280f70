// Package segment maps recency and frequency scores onto named marketing segments.
//
// The rule table overlaps on purpose; it only becomes a partition of the (R, F)
// grid through evaluation order, so the first matching rule wins.
package segment

import (
	"rfm-segmentation/pkg/models"
)

// Rule assigns Segment to every (R, F) pair whose scores are both listed.
type Rule struct {
	Recency   []int
	Frequency []int
	Segment   models.Segment
}

// Matches reports whether the rule covers (r, f).
func (rule Rule) Matches(r, f int) bool {
	return contains(rule.Recency, r) && contains(rule.Frequency, f)
}

// Rules in evaluation order. Cant Loose must stay ahead of At Risk, which covers it.
var Rules = []Rule{
	{Recency: []int{5}, Frequency: []int{4, 5}, Segment: models.SegmentChampions},
	{Recency: []int{3, 4}, Frequency: []int{4, 5}, Segment: models.SegmentLoyalCustomers},
	{Recency: []int{4, 5}, Frequency: []int{2, 3}, Segment: models.SegmentPotentialLoyalists},
	{Recency: []int{5}, Frequency: []int{1}, Segment: models.SegmentNewCustomers},
	{Recency: []int{4}, Frequency: []int{1}, Segment: models.SegmentPromising},
	{Recency: []int{3}, Frequency: []int{3}, Segment: models.SegmentNeedAttention},
	{Recency: []int{3}, Frequency: []int{1, 2}, Segment: models.SegmentAboutToSleep},
	{Recency: []int{1}, Frequency: []int{4, 5}, Segment: models.SegmentCantLoose},
	{Recency: []int{1, 2}, Frequency: []int{3, 4, 5}, Segment: models.SegmentAtRisk},
	{Recency: []int{1, 2}, Frequency: []int{1, 2}, Segment: models.SegmentHibernating},
}

// Classify returns the segment of the first rule matching (r, f), or Other.
func Classify(r, f int) models.Segment {
	return classify(Rules, r, f)
}

func classify(rules []Rule, r, f int) models.Segment {
	for _, rule := range rules {
		if rule.Matches(r, f) {
			return rule.Segment
		}
	}
	return models.SegmentOther
}

// All lists every segment label in rule order, Other last.
func All() []models.Segment {
	out := make([]models.Segment, 0, len(Rules)+1)
	for _, rule := range Rules {
		out = append(out, rule.Segment)
	}
	return append(out, models.SegmentOther)
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
