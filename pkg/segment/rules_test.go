package segment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rfm-segmentation/pkg/models"
)

func TestClassifyGrid(t *testing.T) {
	// Rows are R=5..1, columns F=1..5.
	want := [5][5]models.Segment{
		{models.SegmentNewCustomers, models.SegmentPotentialLoyalists, models.SegmentPotentialLoyalists, models.SegmentChampions, models.SegmentChampions},
		{models.SegmentPromising, models.SegmentPotentialLoyalists, models.SegmentPotentialLoyalists, models.SegmentLoyalCustomers, models.SegmentLoyalCustomers},
		{models.SegmentAboutToSleep, models.SegmentAboutToSleep, models.SegmentNeedAttention, models.SegmentLoyalCustomers, models.SegmentLoyalCustomers},
		{models.SegmentHibernating, models.SegmentHibernating, models.SegmentAtRisk, models.SegmentAtRisk, models.SegmentAtRisk},
		{models.SegmentHibernating, models.SegmentHibernating, models.SegmentAtRisk, models.SegmentCantLoose, models.SegmentCantLoose},
	}
	for i := 0; i < 5; i++ {
		r := 5 - i
		for f := 1; f <= 5; f++ {
			require.Equal(t, want[i][f-1], Classify(r, f), "R=%d F=%d", r, f)
		}
	}
}

func TestCantLooseBeatsAtRisk(t *testing.T) {
	require.Equal(t, models.SegmentCantLoose, Classify(1, 5))
	require.Equal(t, models.SegmentCantLoose, Classify(1, 4))
	require.True(t, Rules[8].Matches(1, 5), "At Risk covers R=1 F=5")

	// Evaluated out of order, the same table would misclassify.
	swapped := append([]Rule(nil), Rules...)
	swapped[7], swapped[8] = swapped[8], swapped[7]
	require.Equal(t, models.SegmentAtRisk, classify(swapped, 1, 5))
}

func TestClassifyOutOfRange(t *testing.T) {
	require.Equal(t, models.SegmentOther, Classify(0, 3))
	require.Equal(t, models.SegmentOther, Classify(6, 5))
	require.Equal(t, models.SegmentOther, Classify(3, 0))
}

func TestClassifyIsPure(t *testing.T) {
	for r := 1; r <= 5; r++ {
		for f := 1; f <= 5; f++ {
			require.Equal(t, Classify(r, f), Classify(r, f))
		}
	}
}

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, 11)
	require.Equal(t, models.SegmentChampions, all[0])
	require.Equal(t, models.SegmentOther, all[len(all)-1])
}
