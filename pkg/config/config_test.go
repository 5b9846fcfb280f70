package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
analysis_date: "2011-12-10"
strict: true
source:
  kind: csv
  path: data/online_retail.csv
  delimiter: ";"
sink:
  kind: json
  path: out/rfm.json
top:
  segment: Champions
  limit: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.Strict)
	require.Equal(t, "transactions", cfg.Source.Table)
	require.Equal(t, "Champions", cfg.Top.Segment)
	require.Equal(t, 25, cfg.Top.Limit)

	d, err := cfg.ParseAnalysisDate()
	require.NoError(t, err)
	require.Equal(t, time.Date(2011, 12, 10, 0, 0, 0, 0, time.UTC), d)

	comma, err := cfg.Comma()
	require.NoError(t, err)
	require.Equal(t, ';', comma)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: [oops"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestDefaultStoreDSNFromEnv(t *testing.T) {
	t.Setenv("RFM_STORE_DSN", "file:segments.db")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "file:segments.db", cfg.Sink.DSN)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.AnalysisDate = "2011-12-10T00:00:00Z"
		c.Source.Path = "retail.csv"
		c.Sink.DSN = "rfm.db"
		return c
	}
	require.NoError(t, valid().Validate())

	for name, mutate := range map[string]func(*Config){
		"no analysis date":     func(c *Config) { c.AnalysisDate = "" },
		"bad analysis date":    func(c *Config) { c.AnalysisDate = "10.12.2011" },
		"csv without path":     func(c *Config) { c.Source.Path = "" },
		"long delimiter":       func(c *Config) { c.Source.Delimiter = ";;" },
		"mysql without dsn":    func(c *Config) { c.Source.Kind = "mysql"; c.Source.DSN = "" },
		"unknown source":       func(c *Config) { c.Source.Kind = "parquet" },
		"store without dsn":    func(c *Config) { c.Sink.DSN = "" },
		"json without path":    func(c *Config) { c.Sink.Kind = "json" },
		"unknown sink":         func(c *Config) { c.Sink.Kind = "kafka" },
		"negative top limit":   func(c *Config) { c.Top.Limit = -1 },
	} {
		c := valid()
		mutate(c)
		require.Error(t, c.Validate(), name)
	}
}

func TestApplyDefaultsJSONPath(t *testing.T) {
	c := Default()
	c.AnalysisDate = "2011-12-11"
	c.Source.Path = "retail.csv"
	c.Sink.Kind = "json"
	c.ApplyDefaults()
	require.True(t, strings.HasPrefix(c.Sink.Path, filepath.Join(DefaultReportDir, "rfm_")), c.Sink.Path)
	require.True(t, strings.HasSuffix(c.Sink.Path, ".json"))
	require.NoError(t, c.Validate())

	c.Sink.Path = "out/custom.json"
	c.ApplyDefaults()
	require.Equal(t, "out/custom.json", c.Sink.Path)

	c = Default()
	c.ApplyDefaults()
	require.Empty(t, c.Sink.Path)
}

func TestCommaTab(t *testing.T) {
	c := Default()
	c.Source.Delimiter = `\t`
	r, err := c.Comma()
	require.NoError(t, err)
	require.Equal(t, '\t', r)
}
