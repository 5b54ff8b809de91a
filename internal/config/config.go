package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains Elasticsearch parameters for the optional index sink.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// OpenStates describes how to reach the remote legislative API.
type OpenStates struct {
	BaseURL     string
	APIKey      string
	State       string
	Session     string
	MaxInFlight int
}

// Enricher holds configuration for the bill enrichment run.
type Enricher struct {
	Common
	OpenStates

	InputPath      string
	OutputPath     string
	CategoryFile   string
	Concurrency    int
	RequestTimeout time.Duration
	RunTimeout     time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// LoadEnricher builds an Enricher config from environment variables.
func LoadEnricher() (*Enricher, error) {
	c := &Enricher{
		Common: Common{
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", ""),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "bills"),
		},
		OpenStates: OpenStates{
			BaseURL:     strings.TrimRight(getEnv("OPENSTATES_BASE_URL", "http://openstates.org/api/v1"), "/"),
			APIKey:      getEnv("OPENSTATES_API_KEY", ""),
			State:       getEnv("OPENSTATES_STATE", "MN"),
			Session:     getEnv("OPENSTATES_SESSION", "2013-2014"),
			MaxInFlight: getInt("OPENSTATES_MAX_IN_FLIGHT", 16),
		},
		InputPath:      getEnv("BILLS_INPUT", "data/bills-list.json"),
		OutputPath:     getEnv("BILLS_OUTPUT", "data/bills.json"),
		CategoryFile:   getEnv("CATEGORY_MAP_FILE", ""),
		Concurrency:    getInt("ENRICH_CONCURRENCY", 8),
		RequestTimeout: getDuration("ENRICH_REQUEST_TIMEOUT", "15s"),
		RunTimeout:     getDuration("ENRICH_RUN_TIMEOUT", "10m"),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "bills_enriched"),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks invariants; callers that override fields after loading
// (command-line flags) should call it again.
func (c *Enricher) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("OPENSTATES_BASE_URL must not be empty")
	}
	if c.MaxInFlight <= 0 {
		return fmt.Errorf("OPENSTATES_MAX_IN_FLIGHT must be positive")
	}
	if c.InputPath == "" {
		return fmt.Errorf("BILLS_INPUT must not be empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("BILLS_OUTPUT must not be empty")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("ENRICH_CONCURRENCY must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("ENRICH_REQUEST_TIMEOUT must be positive")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("ENRICH_RUN_TIMEOUT must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is")
	}
	return nil
}

// ElasticsearchEnabled reports whether the index sink is configured.
func (c *Enricher) ElasticsearchEnabled() bool {
	return c.ElasticsearchAddr != ""
}

// KafkaEnabled reports whether the topic sink is configured.
func (c *Enricher) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
