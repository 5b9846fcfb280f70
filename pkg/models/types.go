package models

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

/*
LOAD → rows as delivered by a data source, every field still unparsed text.
*/

// RawTransaction is one line of the retail transaction table before cleaning.
type RawTransaction struct {
	InvoiceID   string
	StockCode   string
	Description string
	Quantity    string
	InvoiceDate string // "day.month.year hour:minute"
	UnitPrice   string // decimal separator may be a comma
	CustomerID  string
	Country     string
}

// Transaction is a cleaned, typed transaction line. CustomerID is never empty and
// InvoiceID never starts with the cancellation marker.
type Transaction struct {
	InvoiceID  string
	CustomerID string
	Quantity   int64
	UnitPrice  apd.Decimal
	Timestamp  time.Time
}

// CleanReport counts what the cleaner did with each raw row.
type CleanReport struct {
	Read               int
	Kept               int
	MissingCustomer    int
	Cancelled          int
	MalformedPrice     int
	MalformedQuantity  int
	MalformedTimestamp int
}

// Skipped returns the number of rows rejected because a field could not be parsed.
func (r CleanReport) Skipped() int {
	return r.MalformedPrice + r.MalformedQuantity + r.MalformedTimestamp
}

/*
COMPUTE → per-customer metrics, scores and segments.
*/

// CustomerMetrics holds the raw Recency/Frequency/Monetary triple of one customer.
type CustomerMetrics struct {
	CustomerID string
	Recency    int         // whole days between the analysis date and the last purchase
	Frequency  int         // distinct invoices
	Monetary   apd.Decimal // sum of quantity × unit price
}

// Segment is a marketing category derived from the R and F scores.
type Segment string

const (
	SegmentChampions          Segment = "Champions"
	SegmentLoyalCustomers     Segment = "Loyal Customers"
	SegmentPotentialLoyalists Segment = "Potential Loyalists"
	SegmentNewCustomers       Segment = "New Customers"
	SegmentPromising          Segment = "Promising"
	SegmentNeedAttention      Segment = "Need Attention"
	SegmentAboutToSleep       Segment = "About to Sleep"
	SegmentCantLoose          Segment = "Cant Loose"
	SegmentAtRisk             Segment = "At Risk"
	SegmentHibernating        Segment = "Hibernating"
	SegmentOther              Segment = "Other"
)

// CustomerScore is one row of the output table.
type CustomerScore struct {
	CustomerMetrics
	RecencyScore   int
	FrequencyScore int
	MonetaryScore  int
	RFMCode        string
	Segment        Segment
}

// SegmentSummary aggregates the output table for one segment.
type SegmentSummary struct {
	Segment   Segment
	Customers int
	Monetary  apd.Decimal
}

// RunResult is everything a successful pipeline run produced.
type RunResult struct {
	RunID        string
	AnalysisDate time.Time
	Clean        CleanReport
	Scores       []CustomerScore
	Summary      []SegmentSummary
}

/*
CONFIG → pipeline parameters
*/

// Config holds the parameters passed to the pipeline.
type Config struct {
	AnalysisDate time.Time // recency reference; must be after the last transaction
	Strict       bool      // abort on the first malformed row instead of skipping it
	Verbose      bool      // show stage progress
}
