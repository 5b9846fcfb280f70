// Package cleaner turns raw transaction rows into the typed subset usable for segmentation.
package cleaner

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"

	"rfm-segmentation/pkg/logger"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfmerr"
)

// TimestampLayout is the expected invoice timestamp format (day.month.year hour:minute).
const TimestampLayout = "2.1.2006 15:04"

// CancellationMarker prefixes the invoice identifier of a cancelled order.
const CancellationMarker = "C"

// Clean parses every raw row and keeps the ones with a customer and a non-cancelling
// invoice. Malformed fields are counted and the row skipped, unless strict is set, in
// which case the first one is returned. Any other error aborts.
func Clean(raws []models.RawTransaction, strict bool, log *logger.Logger) ([]models.Transaction, models.CleanReport, error) {
	return clean(raws, strict, log, parseRow)
}

func clean(
	raws []models.RawTransaction,
	strict bool,
	log *logger.Logger,
	parse func(models.RawTransaction) (models.Transaction, error),
) ([]models.Transaction, models.CleanReport, error) {
	rep := models.CleanReport{Read: len(raws)}
	out := make([]models.Transaction, 0, len(raws))

	for i, raw := range raws {
		tx, err := parse(raw)
		if err != nil {
			err = errors.Wrapf(err, "row %d (invoice %q)", i+1, raw.InvoiceID)
			if strict || !rfmerr.IsMalformed(err) {
				return nil, rep, err
			}
			countMalformed(&rep, err)
			log.Debug("skipping malformed row", "row", i+1, "error", err)
			continue
		}
		if tx.CustomerID == "" {
			rep.MissingCustomer++
			continue
		}
		if strings.HasPrefix(tx.InvoiceID, CancellationMarker) {
			rep.Cancelled++
			continue
		}
		out = append(out, tx)
	}
	rep.Kept = len(out)
	return out, rep, nil
}

func parseRow(raw models.RawTransaction) (models.Transaction, error) {
	price, err := ParsePrice(raw.UnitPrice)
	if err != nil {
		return models.Transaction{}, err
	}
	qty, err := ParseQuantity(raw.Quantity)
	if err != nil {
		return models.Transaction{}, err
	}
	ts, err := ParseTimestamp(raw.InvoiceDate)
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		InvoiceID:  strings.TrimSpace(raw.InvoiceID),
		CustomerID: strings.TrimSpace(raw.CustomerID),
		Quantity:   qty,
		UnitPrice:  *price,
		Timestamp:  ts,
	}, nil
}

func countMalformed(rep *models.CleanReport, err error) {
	switch {
	case errors.Is(err, rfmerr.ErrMalformedPrice):
		rep.MalformedPrice++
	case errors.Is(err, rfmerr.ErrMalformedQuantity):
		rep.MalformedQuantity++
	case errors.Is(err, rfmerr.ErrMalformedTimestamp):
		rep.MalformedTimestamp++
	}
}

// ParsePrice reads a unit price written with either '.' or ',' as decimal separator.
func ParsePrice(s string) (*apd.Decimal, error) {
	norm := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	d, _, err := apd.NewFromString(norm)
	if err != nil {
		return nil, errors.Wrapf(rfmerr.ErrMalformedPrice, "%q", s)
	}
	if d.Form != apd.Finite {
		return nil, errors.Wrapf(rfmerr.ErrMalformedPrice, "%q is not finite", s)
	}
	return d, nil
}

// ParseQuantity reads an integer quantity; negative values (returns) are accepted.
func ParseQuantity(s string) (int64, error) {
	q, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(rfmerr.ErrMalformedQuantity, "%q", s)
	}
	return q, nil
}

// ParseTimestamp reads a "day.month.year hour:minute" timestamp as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, errors.Wrapf(rfmerr.ErrMalformedTimestamp, "%q", s)
	}
	return ts, nil
}
