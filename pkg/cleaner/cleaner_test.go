package cleaner

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"rfm-segmentation/pkg/logger"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfmerr"
)

func raw(invoice, qty, ts, price, customer string) models.RawTransaction {
	return models.RawTransaction{
		InvoiceID:   invoice,
		StockCode:   "85123A",
		Description: "WHITE HANGING HEART T-LIGHT HOLDER",
		Quantity:    qty,
		InvoiceDate: ts,
		UnitPrice:   price,
		CustomerID:  customer,
		Country:     "United Kingdom",
	}
}

func TestParsePrice(t *testing.T) {
	for _, in := range []string{"2,55", "2.55", " 2,55 "} {
		d, err := ParsePrice(in)
		require.NoError(t, err, in)
		require.Equal(t, "2.55", d.String(), in)
	}
	for _, in := range []string{"", "abc", "2,5,5", "NaN", "Infinity"} {
		_, err := ParsePrice(in)
		require.True(t, errors.Is(err, rfmerr.ErrMalformedPrice), in)
	}
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("-6")
	require.NoError(t, err)
	require.Equal(t, int64(-6), q)

	_, err = ParseQuantity("6.5")
	require.True(t, errors.Is(err, rfmerr.ErrMalformedQuantity))
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("01.12.2010 08:26")
	require.NoError(t, err)
	require.Equal(t, time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC), ts)

	ts, err = ParseTimestamp("9.1.2011 14:05")
	require.NoError(t, err)
	require.Equal(t, time.Date(2011, 1, 9, 14, 5, 0, 0, time.UTC), ts)

	for _, in := range []string{"2010-12-01 08:26", "01.12.2010", "32.12.2010 08:26"} {
		_, err := ParseTimestamp(in)
		require.True(t, errors.Is(err, rfmerr.ErrMalformedTimestamp), in)
	}
}

func TestCleanFiltersAndCounts(t *testing.T) {
	raws := []models.RawTransaction{
		raw("536365", "6", "01.12.2010 08:26", "2,55", "17850"),
		raw("C536379", "-1", "01.12.2010 09:41", "27,50", "14527"),
		raw("536414", "56", "01.12.2010 11:52", "0", ""),
		raw("c536380", "2", "01.12.2010 09:41", "1,00", "14527"),
		raw("536366", "x", "01.12.2010 08:28", "1,85", "17850"),
		raw("536367", "3", "01.12.2010 08:34", "n/a", "13047"),
		raw("536368", "3", "2010-12-01", "4,25", "13047"),
	}

	txs, rep, err := Clean(raws, false, logger.Nop())
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, "536365", txs[0].InvoiceID)
	// Prefix match is case-sensitive.
	require.Equal(t, "c536380", txs[1].InvoiceID)
	require.Equal(t, models.CleanReport{
		Read:               7,
		Kept:               2,
		MissingCustomer:    1,
		Cancelled:          1,
		MalformedPrice:     1,
		MalformedQuantity:  1,
		MalformedTimestamp: 1,
	}, rep)
	require.Equal(t, 3, rep.Skipped())

	for _, tx := range txs {
		require.NotEmpty(t, tx.CustomerID)
	}
}

func TestCleanStrictFailsFast(t *testing.T) {
	raws := []models.RawTransaction{
		raw("536365", "6", "01.12.2010 08:26", "2,55", "17850"),
		raw("536366", "6", "01.12.2010 08:28", "bad", "17850"),
		raw("536367", "bad", "01.12.2010 08:34", "1", "17850"),
	}
	_, _, err := Clean(raws, true, logger.Nop())
	require.Error(t, err)
	require.True(t, errors.Is(err, rfmerr.ErrMalformedPrice))
	require.Contains(t, err.Error(), "row 2")
}

func TestCleanAbortsOnUnexpectedError(t *testing.T) {
	raws := []models.RawTransaction{
		raw("536365", "6", "01.12.2010 08:26", "2,55", "17850"),
		raw("536366", "6", "01.12.2010 08:28", "1,00", "17850"),
	}
	calls := 0
	parse := func(r models.RawTransaction) (models.Transaction, error) {
		calls++
		if r.InvoiceID == "536365" {
			return models.Transaction{}, errors.Wrap(rfmerr.ErrMalformedPrice, "bad")
		}
		return models.Transaction{}, errors.New("decoder state lost")
	}

	_, rep, err := clean(raws, false, logger.Nop(), parse)
	require.Error(t, err)
	require.False(t, rfmerr.IsMalformed(err))
	require.Contains(t, err.Error(), "row 2")
	require.Equal(t, 2, calls)
	require.Equal(t, 1, rep.MalformedPrice)
}
