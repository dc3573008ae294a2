// Package config loads the scraper configuration. Values are taken from a
// yml (or json) file, environment variables or both; environment variables
// take precedence. Durations are given as strings like "1.5s" or as a number
// of seconds.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ScraperConfig holds the timings of the interaction with the portal and
// the shape of the extracted data.
type ScraperConfig struct {
	MaxRetries            int      `yaml:"max_retries" json:"max_retries" env:"EXTRADUTY_MAX_RETRIES" env-default:"3"`
	RetryDelay            Duration `yaml:"retry_delay" json:"retry_delay" env:"EXTRADUTY_RETRY_DELAY" env-default:"1s"`
	ActionDelay           Duration `yaml:"action_delay" json:"action_delay" env:"EXTRADUTY_ACTION_DELAY" env-default:"500ms"`
	GridRefreshWait       Duration `yaml:"grid_refresh_wait" json:"grid_refresh_wait" env:"EXTRADUTY_GRID_REFRESH_WAIT" env-default:"3s"`
	ElementWaitTimeout    Duration `yaml:"element_wait_timeout" json:"element_wait_timeout" env:"EXTRADUTY_ELEMENT_WAIT_TIMEOUT" env-default:"10s"`
	PageLoadTimeout       Duration `yaml:"page_load_timeout" json:"page_load_timeout" env:"EXTRADUTY_PAGE_LOAD_TIMEOUT" env-default:"30s"`
	ChromeDebuggerAddress string   `yaml:"chrome_debugger_address" json:"chrome_debugger_address" env:"EXTRADUTY_CHROME_DEBUGGER_ADDRESS" env-default:"127.0.0.1:9222"`
	PortalURL             string   `yaml:"portal_url" json:"portal_url" env:"EXTRADUTY_PORTAL_URL" env-default:"https://vcssoftware.com/extra-duty"`
	CSVColumns            []string `yaml:"csv_columns" json:"csv_columns" env:"EXTRADUTY_CSV_COLUMNS" env-separator:"," env-default:"Job #,Job Date,Start Time,End Time,Hours,Location,Job Type,Rate,Status"`
}

// PathsConfig defines where results and logs are written.
type PathsConfig struct {
	OutputFolder string `yaml:"output_folder" json:"output_folder" env:"EXTRADUTY_OUTPUT_FOLDER" env-default:"./output"`
	LogFolder    string `yaml:"log_folder" json:"log_folder" env:"EXTRADUTY_LOG_FOLDER" env-default:"./logs"`
}

// WriterConfig selects the output of a run.
type WriterConfig struct {
	Type   string `yaml:"type" json:"type" env:"EXTRADUTY_WRITER_TYPE" env-default:"file"`
	Prefix string `yaml:"prefix" json:"prefix" env:"EXTRADUTY_WRITER_PREFIX" env-default:"vcs_extra_duty_jobs"`
}

// Config defines the overall structure of the configuration.
type Config struct {
	Scraper    ScraperConfig `yaml:"scraper" json:"scraper"`
	Paths      PathsConfig   `yaml:"paths" json:"paths"`
	Writer     WriterConfig  `yaml:"writer" json:"writer"`
	TargetYear int           `yaml:"target_year" json:"target_year" env:"EXTRADUTY_TARGET_YEAR" env-default:"2025"`
	// Locale is used for human readable window labels, eg. en_US or de_DE.
	Locale string `yaml:"locale" json:"locale" env:"EXTRADUTY_LOCALE" env-default:"en_US"`
}

// NewConfig reads the configuration file at path. If path is empty only
// environment variables and defaults are used.
func NewConfig(path string) (*Config, error) {
	var config Config
	var err error
	if path == "" {
		err = cleanenv.ReadEnv(&config)
	} else {
		err = cleanenv.ReadConfig(path, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the invariants the scraper relies on.
func (c *Config) Validate() error {
	var errs []error
	s := c.Scraper
	if s.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries cannot be negative"))
	}
	for name, d := range map[string]Duration{
		"retry_delay":          s.RetryDelay,
		"action_delay":         s.ActionDelay,
		"grid_refresh_wait":    s.GridRefreshWait,
		"element_wait_timeout": s.ElementWaitTimeout,
		"page_load_timeout":    s.PageLoadTimeout,
	} {
		switch {
		case d < 0:
			errs = append(errs, fmt.Errorf("%s cannot be negative", name))
		case d > 0 && d.Duration() < time.Millisecond:
			errs = append(errs, fmt.Errorf("%s of %s is below a millisecond, give seconds or a value like 500ms", name, d))
		}
	}
	if len(s.CSVColumns) == 0 {
		errs = append(errs, errors.New("csv_columns cannot be empty"))
	}
	seen := map[string]bool{}
	for _, col := range s.CSVColumns {
		if col == "" {
			errs = append(errs, errors.New("csv_columns cannot contain empty names"))
			continue
		}
		if seen[col] {
			errs = append(errs, fmt.Errorf("csv column '%s' defined more than once", col))
		}
		seen[col] = true
	}
	if c.TargetYear < 1900 || c.TargetYear > 9999 {
		errs = append(errs, fmt.Errorf("target_year %d out of range", c.TargetYear))
	}
	return errors.Join(errs...)
}
