package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"rfm-segmentation/pkg/reports"
)

// DefaultReportDir receives timestamped JSON exports when sink.path is not set.
const DefaultReportDir = "reports"

type SourceConfig struct {
	Kind      string `yaml:"kind"` // csv | mysql
	Path      string `yaml:"path"`
	Delimiter string `yaml:"delimiter"`
	DSN       string `yaml:"dsn"`
	Table     string `yaml:"table"`
}

type SinkConfig struct {
	Kind string `yaml:"kind"` // sqlite | postgres | mysql | json
	DSN  string `yaml:"dsn"`
	Path string `yaml:"path"`
}

type TopConfig struct {
	Segment string `yaml:"segment"`
	Limit   int    `yaml:"limit"`
}

type Config struct {
	AnalysisDate string       `yaml:"analysis_date"`
	Source       SourceConfig `yaml:"source"`
	Sink         SinkConfig   `yaml:"sink"`
	Top          TopConfig    `yaml:"top"`
	Strict       bool         `yaml:"strict"`
	LogMode      string       `yaml:"log_mode"`
	Verbose      bool         `yaml:"verbose"`
}

// Default returns the configuration used when no file is given. DSNs fall back to
// RFM_SOURCE_DSN and RFM_STORE_DSN.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:      "csv",
			Delimiter: ",",
			DSN:       os.Getenv("RFM_SOURCE_DSN"),
			Table:     "transactions",
		},
		Sink: SinkConfig{
			Kind: "sqlite",
			DSN:  envOr("RFM_STORE_DSN", "rfm.db"),
		},
		Top:     TopConfig{Limit: 10},
		LogMode: "development",
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// ApplyDefaults fills values derived at run time: a json sink without a path writes
// to a timestamped file under DefaultReportDir.
func (c *Config) ApplyDefaults() {
	if c.Sink.Kind == "json" && strings.TrimSpace(c.Sink.Path) == "" {
		c.Sink.Path = reports.TimestampedFilename(DefaultReportDir, "rfm")
	}
}

// Validate checks the fields a run needs.
func (c *Config) Validate() error {
	if _, err := c.ParseAnalysisDate(); err != nil {
		return err
	}
	switch c.Source.Kind {
	case "csv":
		if c.Source.Path == "" {
			return errors.New("source.path is required for csv sources")
		}
		if _, err := c.Comma(); err != nil {
			return err
		}
	case "mysql":
		if c.Source.DSN == "" {
			return errors.New("source.dsn is required for mysql sources")
		}
	default:
		return errors.Newf("unknown source kind %q", c.Source.Kind)
	}
	switch c.Sink.Kind {
	case "sqlite", "postgres", "mysql":
		if c.Sink.DSN == "" {
			return errors.Newf("sink.dsn is required for %s sinks", c.Sink.Kind)
		}
	case "json":
		if c.Sink.Path == "" {
			return errors.New("sink.path is required for json sinks")
		}
	default:
		return errors.Newf("unknown sink kind %q", c.Sink.Kind)
	}
	if c.Top.Limit < 0 {
		return errors.New("top.limit must not be negative")
	}
	return nil
}

// ParseAnalysisDate accepts YYYY-MM-DD (midnight UTC) or RFC 3339.
func (c *Config) ParseAnalysisDate() (time.Time, error) {
	s := strings.TrimSpace(c.AnalysisDate)
	if s == "" {
		return time.Time{}, errors.New("analysis_date is required")
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.Newf("analysis_date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// Comma returns the single-character source delimiter; "\t" and "tab" mean a tab.
func (c *Config) Comma() (rune, error) {
	d := c.Source.Delimiter
	switch d {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(d)
	if len(r) != 1 {
		return 0, errors.Newf("source.delimiter %q must be one character", d)
	}
	return r[0], nil
}

func envOr(name, def string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return def
}
