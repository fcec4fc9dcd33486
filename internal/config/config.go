package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v2"
)

type SelectorConfig struct {
	Infobox      string `yaml:"infobox"`
	RejectMarker string `yaml:"reject_marker"`
	Footnotes    string `yaml:"footnotes"`
	Timestamps   string `yaml:"timestamps"`
}

type SourceConfig struct {
	Name            string         `yaml:"name"`
	ListURL         string         `yaml:"list_url" env:"INFOBOX_LIST_URL"`
	LinkSelector    string         `yaml:"link_selector"`
	FollowPatterns  []string       `yaml:"follow_patterns"`
	ExcludePatterns []string       `yaml:"exclude_patterns"`
	MaxPages        int            `yaml:"max_pages" env:"INFOBOX_MAX_PAGES"`
	Selectors       SelectorConfig `yaml:"selectors"`
}

type DBConfig struct {
	Connection  string `yaml:"connection" env:"INFOBOX_MONGO_URI"`
	Database    string `yaml:"database" env:"INFOBOX_MONGO_DB"`
	Collections struct {
		Documents string `yaml:"documents"`
		Records   string `yaml:"records"`
	} `yaml:"collections"`
}

// Enabled reports whether a Mongo connection is configured.
func (c DBConfig) Enabled() bool {
	return c.Connection != ""
}

type LogicConfig struct {
	Fetcher               string  `yaml:"fetcher" env:"INFOBOX_FETCHER"`
	UserAgent             string  `yaml:"user_agent" env:"INFOBOX_USER_AGENT"`
	TimeoutSec            int     `yaml:"timeout_sec"`
	MaxConcurrentWorkers  int     `yaml:"max_concurrent_workers" env:"INFOBOX_WORKERS"`
	RequestsPerSecond     float64 `yaml:"requests_per_second" env:"INFOBOX_RPS"`
	Burst                 int     `yaml:"burst"`
	PauseEvery            int     `yaml:"pause_every"` // negative disables the pause
	PauseSec              int     `yaml:"pause_sec"`
	RecrawlThresholdHours int     `yaml:"recrawl_threshold_hours"`
	CurrencyRange         string  `yaml:"currency_range"`
}

type OutputConfig struct {
	Dir       string `yaml:"dir" env:"INFOBOX_OUTPUT_DIR"`
	RawJSON   string `yaml:"raw_json"`
	RichBSON  string `yaml:"rich_bson"`
	FinalJSON string `yaml:"final_json"`
	CSV       string `yaml:"csv"`
}

// Path resolves an output file name against Dir.
func (c OutputConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

type VerifyConfig struct {
	Policy string `yaml:"policy" env:"INFOBOX_VERIFY_POLICY"`
}

type Config struct {
	DB     DBConfig     `yaml:"db"`
	Logic  LogicConfig  `yaml:"logic"`
	Source SourceConfig `yaml:"source"`
	Output OutputConfig `yaml:"output"`
	Verify VerifyConfig `yaml:"verify"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse reads YAML, applies INFOBOX_* environment overrides and defaults, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	setString(&c.Source.Name, "wikipedia")
	setString(&c.Source.LinkSelector, ".wikitable.sortable i a")

	setString(&c.DB.Database, "infobox")
	setString(&c.DB.Collections.Documents, "documents")
	setString(&c.DB.Collections.Records, "records")

	setString(&c.Logic.Fetcher, "http")
	setString(&c.Logic.UserAgent, "Mozilla/5.0 (compatible; InfoboxScraper/1.0)")
	setInt(&c.Logic.TimeoutSec, 30)
	setInt(&c.Logic.MaxConcurrentWorkers, 1)
	setInt(&c.Logic.Burst, 1)
	setInt(&c.Logic.PauseEvery, 100)
	setInt(&c.Logic.PauseSec, 25)
	setInt(&c.Logic.RecrawlThresholdHours, 24*7)
	setString(&c.Logic.CurrencyRange, "lower")

	setString(&c.Output.Dir, ".")
	setString(&c.Output.RawJSON, "records_raw.json")
	setString(&c.Output.RichBSON, "records.bson")
	setString(&c.Output.FinalJSON, "records_final.json")
	setString(&c.Output.CSV, "records.csv")

	setString(&c.Verify.Policy, "warn")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Source.ListURL == "" {
		errs = append(errs, errors.New("source.list_url is required"))
	}
	switch c.Logic.Fetcher {
	case "http", "colly":
	default:
		errs = append(errs, fmt.Errorf("logic.fetcher must be http or colly, got %q", c.Logic.Fetcher))
	}
	if c.Logic.MaxConcurrentWorkers < 1 {
		errs = append(errs, errors.New("logic.max_concurrent_workers must be at least 1"))
	}
	if c.Logic.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("logic.requests_per_second must not be negative"))
	}
	switch c.Verify.Policy {
	case "warn", "fail", "reloaded":
	default:
		errs = append(errs, fmt.Errorf("verify.policy must be warn, fail or reloaded, got %q", c.Verify.Policy))
	}
	switch c.Logic.CurrencyRange {
	case "lower", "upper", "mean":
	default:
		errs = append(errs, fmt.Errorf("logic.currency_range must be lower, upper or mean, got %q", c.Logic.CurrencyRange))
	}
	return errors.Join(errs...)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
