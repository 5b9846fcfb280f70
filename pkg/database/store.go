package database

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/schollz/progressbar/v3"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"rfm-segmentation/pkg/logger"
	"rfm-segmentation/pkg/models"
)

const writeBatch = 500

// ScoreRow is the persisted form of a customer score, one row per customer.
type ScoreRow struct {
	CustomerID     string  `gorm:"primaryKey;size:64"`
	Recency        int     `gorm:"not null"`
	Frequency      int     `gorm:"not null"`
	Monetary       float64 `gorm:"not null;index"`
	RecencyScore   int     `gorm:"not null"`
	FrequencyScore int     `gorm:"not null"`
	MonetaryScore  int     `gorm:"not null"`
	RFMCode        string  `gorm:"column:rfm_code;size:3;not null"`
	Segment        string  `gorm:"size:32;not null;index"`
}

func (ScoreRow) TableName() string {
	return "customer_rfm"
}

// Store keeps the score table of the latest run.
type Store struct {
	db      *gorm.DB
	log     *logger.Logger
	verbose bool
}

// OpenStore connects to a sqlite, postgres or mysql database and migrates the score table.
func OpenStore(kind, dsn string, verbose bool, log *logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch kind {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		mysqlDSN, err := toMySQLDSN(dsn)
		if err != nil {
			return nil, err
		}
		dialector = gormmysql.Open(mysqlDSN)
	default:
		return nil, errors.Newf("unknown store kind %q", kind)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s store", kind)
	}
	if kind == "sqlite" {
		// A single connection keeps ":memory:" databases shared.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&ScoreRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate score table")
	}
	return &Store{db: db, log: log.With("store", kind), verbose: verbose}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Write replaces the whole table with scores inside one transaction.
func (s *Store) Write(ctx context.Context, scores []models.CustomerScore) error {
	rows, err := toRows(scores)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if s.verbose {
		bar = progressbar.Default(int64(len(rows)), "store")
	} else {
		bar = progressbar.DefaultSilent(int64(len(rows)))
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&ScoreRow{}).Error; err != nil {
			return errors.Wrap(err, "clear previous scores")
		}
		for start := 0; start < len(rows); start += writeBatch {
			end := start + writeBatch
			if end > len(rows) {
				end = len(rows)
			}
			batch := rows[start:end]
			if err := tx.Create(&batch).Error; err != nil {
				return errors.Wrapf(err, "insert rows %d-%d", start, end)
			}
			_ = bar.Add(end - start)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("scores stored", "rows", len(rows))
	return nil
}

func toRows(scores []models.CustomerScore) ([]ScoreRow, error) {
	rows := make([]ScoreRow, len(scores))
	for i := range scores {
		sc := &scores[i]
		monetary, err := sc.Monetary.Float64()
		if err != nil {
			return nil, errors.Wrapf(err, "customer %s: monetary %s", sc.CustomerID, sc.Monetary.String())
		}
		rows[i] = ScoreRow{
			CustomerID:     sc.CustomerID,
			Recency:        sc.Recency,
			Frequency:      sc.Frequency,
			Monetary:       monetary,
			RecencyScore:   sc.RecencyScore,
			FrequencyScore: sc.FrequencyScore,
			MonetaryScore:  sc.MonetaryScore,
			RFMCode:        sc.RFMCode,
			Segment:        string(sc.Segment),
		}
	}
	return rows, nil
}

// TopBySegment returns the campaign target list of a segment: its customers by
// monetary value, highest first.
func (s *Store) TopBySegment(ctx context.Context, segment models.Segment, limit int) ([]ScoreRow, error) {
	var out []ScoreRow
	q := s.db.WithContext(ctx).
		Where("segment = ?", string(segment)).
		Order("monetary DESC").
		Order("customer_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, errors.Wrapf(err, "top %d of %s", limit, segment)
	}
	return out, nil
}

// SegmentCounts returns the number of stored customers per segment.
func (s *Store) SegmentCounts(ctx context.Context) (map[models.Segment]int, error) {
	var rows []struct {
		Segment   string
		Customers int
	}
	err := s.db.WithContext(ctx).
		Model(&ScoreRow{}).
		Select("segment, COUNT(*) AS customers").
		Group("segment").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count segments")
	}
	out := make(map[models.Segment]int, len(rows))
	for _, r := range rows {
		out[models.Segment(r.Segment)] = r.Customers
	}
	return out, nil
}
