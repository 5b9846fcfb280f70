// Package aggregator reduces cleaned transactions to one Recency/Frequency/Monetary
// triple per customer.
package aggregator

import (
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"

	"rfm-segmentation/pkg/models"
)

// DecimalCtx is used for all money arithmetic. Sums of retail lines stay far below
// 34 significant digits, so results are exact.
var DecimalCtx = apd.BaseContext.WithPrecision(34)

const day = 24 * time.Hour

type accumulator struct {
	last     time.Time
	invoices map[string]struct{}
	sum      apd.Decimal
}

// Aggregate groups txs by customer and returns their metrics ordered by customer ID.
//
// analysisDate must not fall before the date of the latest transaction; recency is
// the number of calendar days (UTC) between a customer's last purchase date and
// analysisDate, so a purchase on analysisDate itself has recency 0.
func Aggregate(txs []models.Transaction, analysisDate time.Time) ([]models.CustomerMetrics, error) {
	byCustomer := make(map[string]*accumulator)
	var line apd.Decimal
	for i := range txs {
		tx := &txs[i]
		acc, ok := byCustomer[tx.CustomerID]
		if !ok {
			acc = &accumulator{invoices: make(map[string]struct{})}
			byCustomer[tx.CustomerID] = acc
		}
		if tx.Timestamp.After(acc.last) {
			acc.last = tx.Timestamp
		}
		acc.invoices[tx.InvoiceID] = struct{}{}

		if _, err := DecimalCtx.Mul(&line, apd.New(tx.Quantity, 0), &tx.UnitPrice); err != nil {
			return nil, errors.Wrapf(err, "customer %s invoice %s: line amount", tx.CustomerID, tx.InvoiceID)
		}
		if _, err := DecimalCtx.Add(&acc.sum, &acc.sum, &line); err != nil {
			return nil, errors.Wrapf(err, "customer %s: monetary sum", tx.CustomerID)
		}
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.CustomerMetrics, len(ids))
	for i, id := range ids {
		acc := byCustomer[id]
		out[i] = models.CustomerMetrics{
			CustomerID: id,
			Recency:    DaysBetween(acc.last, analysisDate),
			Frequency:  len(acc.invoices),
		}
		out[i].Monetary.Set(&acc.sum)
	}
	return out, nil
}

// Date truncates t to midnight of its UTC calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from the date of from to the date of to.
func DaysBetween(from, to time.Time) int {
	return int(Date(to).Sub(Date(from)) / day)
}

// MaxTimestamp returns the latest transaction timestamp, or false when txs is empty.
func MaxTimestamp(txs []models.Transaction) (time.Time, bool) {
	if len(txs) == 0 {
		return time.Time{}, false
	}
	max := txs[0].Timestamp
	for _, tx := range txs[1:] {
		if tx.Timestamp.After(max) {
			max = tx.Timestamp
		}
	}
	return max, true
}
