package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"rfm-segmentation/pkg/models"
)

// Row is the exported form of one customer score.
type Row struct {
	CustomerID     string      `json:"customer_id"`
	Recency        int         `json:"recency"`
	Frequency      int         `json:"frequency"`
	Monetary       json.Number `json:"monetary"`
	RecencyScore   int         `json:"recency_score"`
	FrequencyScore int         `json:"frequency_score"`
	MonetaryScore  int         `json:"monetary_score"`
	RFMCode        string      `json:"rfm_code"`
	Segment        string      `json:"segment"`
}

// Rows converts scores to export rows, keeping their order.
func Rows(scores []models.CustomerScore) []Row {
	out := make([]Row, len(scores))
	for i := range scores {
		s := &scores[i]
		out[i] = Row{
			CustomerID:     s.CustomerID,
			Recency:        s.Recency,
			Frequency:      s.Frequency,
			Monetary:       json.Number(s.Monetary.Text('f')),
			RecencyScore:   s.RecencyScore,
			FrequencyScore: s.FrequencyScore,
			MonetaryScore:  s.MonetaryScore,
			RFMCode:        s.RFMCode,
			Segment:        string(s.Segment),
		}
	}
	return out
}

// Encode writes scores to w as an indented JSON array.
func Encode(w io.Writer, scores []models.CustomerScore) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Rows(scores)); err != nil {
		return errors.Wrap(err, "failed to write JSON")
	}
	return nil
}

// JSONSink writes the score table to a JSON file, replacing any previous content.
type JSONSink struct {
	Path string
}

func (s JSONSink) Write(_ context.Context, scores []models.CustomerScore) error {
	// Make sure the folder exists
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return errors.Wrap(err, "failed to create folder")
	}

	tmp := s.Path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	if err := Encode(file, scores); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "failed to close file")
	}
	return os.Rename(tmp, s.Path)
}

func TimestampedFilename(baseDir, name string) string {
	t := time.Now().Format("20060102_150405")
	return filepath.Join(baseDir, fmt.Sprintf("%s_%s.json", name, t))
}
