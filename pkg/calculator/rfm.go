package calculator

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"rfm-segmentation/pkg/aggregator"
	"rfm-segmentation/pkg/cleaner"
	"rfm-segmentation/pkg/logger"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfmerr"
	"rfm-segmentation/pkg/scoring"
	"rfm-segmentation/pkg/segment"
)

// Source provides raw transaction rows, every field as text.
type Source interface {
	Transactions(ctx context.Context) ([]models.RawTransaction, error)
}

// Sink receives the complete score table of a successful run.
type Sink interface {
	Write(ctx context.Context, scores []models.CustomerScore) error
}

const stages = 5

// Run executes clean → aggregate → score → write over the whole batch. Nothing is
// written unless every stage succeeds; a nil sink skips the write.
func Run(ctx context.Context, src Source, sink Sink, cfg models.Config, log *logger.Logger) (*models.RunResult, error) {
	runID := uuid.NewString()
	log = log.With("run_id", runID, "analysis_date", cfg.AnalysisDate.Format("2006-01-02"))

	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.Default(stages, "rfm")
	} else {
		bar = progressbar.DefaultSilent(stages)
	}
	step := func(desc string) {
		bar.Describe(desc)
		_ = bar.Add(1)
	}

	raws, err := src.Transactions(ctx)
	if err != nil {
		return nil, rfmerr.Stage(rfmerr.StageSource, err)
	}
	step("source")
	log.Info("raw transactions loaded", "rows", len(raws))

	txs, report, err := cleaner.Clean(raws, cfg.Strict, log)
	if err != nil {
		return nil, rfmerr.Stage(rfmerr.StageClean, err)
	}
	step("clean")
	log.Info("transactions cleaned",
		"read", report.Read,
		"kept", report.Kept,
		"missing_customer", report.MissingCustomer,
		"cancelled", report.Cancelled,
		"malformed_price", report.MalformedPrice,
		"malformed_quantity", report.MalformedQuantity,
		"malformed_timestamp", report.MalformedTimestamp,
	)
	if n := report.Skipped(); n > 0 {
		log.Warn("malformed rows skipped", "count", n)
	}

	if err := checkPreconditions(txs, cfg); err != nil {
		return nil, rfmerr.Stage(rfmerr.StageAggregate, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics, err := aggregator.Aggregate(txs, cfg.AnalysisDate)
	if err != nil {
		return nil, rfmerr.Stage(rfmerr.StageAggregate, err)
	}
	step("aggregate")
	log.Info("customer metrics computed", "customers", len(metrics))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores, err := scoring.Score(metrics)
	if err != nil {
		return nil, rfmerr.Stage(rfmerr.StageScore, err)
	}
	summary, err := Summarize(scores)
	if err != nil {
		return nil, rfmerr.Stage(rfmerr.StageScore, err)
	}
	step("score")

	if sink != nil {
		if err := sink.Write(ctx, scores); err != nil {
			return nil, rfmerr.Stage(rfmerr.StageSink, err)
		}
	}
	step("sink")
	_ = bar.Finish()

	for _, s := range summary {
		if s.Customers > 0 {
			log.Debug("segment", "segment", s.Segment, "customers", s.Customers, "monetary", s.Monetary.String())
		}
	}
	log.Info("run complete", "customers", len(scores))

	return &models.RunResult{
		RunID:        runID,
		AnalysisDate: cfg.AnalysisDate,
		Clean:        report,
		Scores:       scores,
		Summary:      summary,
	}, nil
}

func checkPreconditions(txs []models.Transaction, cfg models.Config) error {
	if cfg.AnalysisDate.IsZero() {
		return rfmerr.Preconditionf("analysis date is required")
	}
	max, ok := aggregator.MaxTimestamp(txs)
	if !ok {
		return rfmerr.Preconditionf("no transactions left after cleaning")
	}
	// Same-day purchases are allowed and score recency 0.
	if aggregator.Date(max).After(aggregator.Date(cfg.AnalysisDate)) {
		return rfmerr.Preconditionf("analysis date %s is before the last transaction %s",
			cfg.AnalysisDate.Format("2006-01-02"), max.Format("2006-01-02 15:04"))
	}
	return nil
}

// Summarize counts customers and sums monetary value per segment, in rule order with
// Other last. Every segment is listed, empty ones included.
func Summarize(scores []models.CustomerScore) ([]models.SegmentSummary, error) {
	labels := segment.All()
	index := make(map[models.Segment]int, len(labels))
	out := make([]models.SegmentSummary, len(labels))
	for i, s := range labels {
		index[s] = i
		out[i].Segment = s
	}
	for i := range scores {
		sc := &scores[i]
		j, ok := index[sc.Segment]
		if !ok {
			return nil, errors.Newf("unknown segment %q for customer %s", sc.Segment, sc.CustomerID)
		}
		out[j].Customers++
		if _, err := aggregator.DecimalCtx.Add(&out[j].Monetary, &out[j].Monetary, &sc.Monetary); err != nil {
			return nil, errors.Wrapf(err, "segment %s: monetary total", sc.Segment)
		}
	}
	return out, nil
}
