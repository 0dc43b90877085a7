package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL    = "https://locate.be-md.ncbi.nlm.nih.gov"
	DefaultMaxRetries = 3
	DefaultRetryDelay = 5 * time.Second
	DefaultTimeout    = 30 * time.Second
)

var (
	ErrConfigFileUnreadable     = errors.New("config file is unreadable")
	ErrConfigFileUnmarshallable = errors.New("config file is unmarshallable")
	ErrBaseURLMissing           = errors.New("baseUrl is missing in config")
	ErrMaxRetriesInvalid        = errors.New("maxRetries must be at least 1")
	ErrRetryDelayInvalid        = errors.New("retryDelay cannot be negative")
)

// Tool is the full configuration surface of the resolver. Every field has a
// working default so the tool runs without a config file at all.
type Tool struct {
	BaseURL    string        `yaml:"baseUrl"`    // resolution service root
	MaxRetries int           `yaml:"maxRetries"` // total attempts per request
	RetryDelay time.Duration `yaml:"retryDelay"` // fixed wait between attempts
	Timeout    time.Duration `yaml:"timeout"`    // per-request HTTP timeout
	Flatten    bool          `yaml:"flatten"`    // flatten output paths under DRS_Import/
	IncludeETL bool          `yaml:"includeEtl"` // pass etl=true on idx lookups
}

// Default returns a configuration populated with the stock values.
func Default() *Tool {
	return &Tool{
		BaseURL:    DefaultBaseURL,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    DefaultTimeout,
	}
}

// Load reads a yaml config file on top of the defaults and validates it.
func Load(path string) (*Tool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFileUnreadable, path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigFileUnmarshallable, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (t *Tool) Validate() error {
	if t.BaseURL == "" {
		return ErrBaseURLMissing
	}
	if t.MaxRetries < 1 {
		return ErrMaxRetriesInvalid
	}
	if t.RetryDelay < 0 {
		return ErrRetryDelayInvalid
	}
	return nil
}
