// Package ingest reads raw transaction rows from delimited text files.
package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"rfm-segmentation/pkg/models"
)

type column int

const (
	colInvoice column = iota
	colStock
	colDescription
	colQuantity
	colTimestamp
	colPrice
	colCustomer
	colCountry
	numColumns
)

// Header aliases after lowercasing and dropping everything but letters and digits.
var aliases = map[string]column{
	"invoiceno":        colInvoice,
	"invoiceid":        colInvoice,
	"invoice":          colInvoice,
	"stockcode":        colStock,
	"description":      colDescription,
	"quantity":         colQuantity,
	"invoicedate":      colTimestamp,
	"invoicetimestamp": colTimestamp,
	"unitprice":        colPrice,
	"price":            colPrice,
	"customerid":       colCustomer,
	"country":          colCountry,
}

var required = []struct {
	col  column
	name string
}{
	{colInvoice, "invoice_id"},
	{colQuantity, "quantity"},
	{colTimestamp, "invoice_timestamp"},
	{colPrice, "unit_price"},
	{colCustomer, "customer_id"},
}

// CSVSource reads a headered transaction file.
type CSVSource struct {
	Path  string
	Comma rune // field delimiter, ',' when zero
}

func (s CSVSource) Transactions(ctx context.Context) ([]models.RawTransaction, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	defer f.Close()
	rows, err := ReadCSV(ctx, f, s.Comma)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.Path)
	}
	return rows, nil
}

// ReadCSV reads every row after the header line. Columns are located by header name,
// so their order does not matter.
func ReadCSV(ctx context.Context, r io.Reader, comma rune) ([]models.RawTransaction, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("missing header line")
	}
	if err != nil {
		return nil, errors.Wrap(err, "header")
	}
	pos, err := locate(header)
	if err != nil {
		return nil, err
	}

	var out []models.RawTransaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		field := func(c column) string {
			i := pos[c]
			if i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		out = append(out, models.RawTransaction{
			InvoiceID:   field(colInvoice),
			StockCode:   field(colStock),
			Description: field(colDescription),
			Quantity:    field(colQuantity),
			InvoiceDate: field(colTimestamp),
			UnitPrice:   field(colPrice),
			CustomerID:  field(colCustomer),
			Country:     field(colCountry),
		})
	}
	return out, nil
}

func locate(header []string) ([numColumns]int, error) {
	var pos [numColumns]int
	for i := range pos {
		pos[i] = -1
	}
	for i, h := range header {
		if c, ok := aliases[normalize(h)]; ok && pos[c] < 0 {
			pos[c] = i
		}
	}
	var missing []string
	for _, req := range required {
		if pos[req.col] < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return pos, errors.Newf("missing columns: %s", strings.Join(missing, ", "))
	}
	return pos, nil
}

func normalize(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
