package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"rfm-segmentation/pkg/models"
)

func score(id string, cents int64) models.CustomerScore {
	s := models.CustomerScore{
		CustomerMetrics: models.CustomerMetrics{CustomerID: id, Recency: 5, Frequency: 2},
		RecencyScore:    4,
		FrequencyScore:  1,
		MonetaryScore:   4,
		RFMCode:         "414",
		Segment:         models.SegmentPromising,
	}
	s.Monetary.SetFinite(cents, -2)
	return s
}

func TestEncodeKeepsDecimalText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []models.CustomerScore{score("17850", 15000), score("13047", -250)}))
	out := buf.String()
	require.Contains(t, out, `"monetary": 150.00`)
	require.Contains(t, out, `"monetary": -2.50`)
	require.Contains(t, out, `"segment": "Promising"`)
	require.Less(t, strings.Index(out, "17850"), strings.Index(out, "13047"))

	var rows []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "414", rows[0].RFMCode)
}

func TestJSONSinkWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "scores.json")
	sink := JSONSink{Path: path}
	require.NoError(t, sink.Write(context.Background(), []models.CustomerScore{score("17850", 15000)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"customer_id": "17850"`)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestTimestampedFilename(t *testing.T) {
	name := TimestampedFilename("out", "rfm")
	require.True(t, strings.HasPrefix(name, filepath.Join("out", "rfm_")))
	require.True(t, strings.HasSuffix(name, ".json"))
}
