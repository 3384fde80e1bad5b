package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds application configuration. It is built once at startup and
// passed explicitly into the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	// Server settings
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// Archive folder containing .msg/.eml files addressable by filename
	ArchivePath string `yaml:"archive_path"`

	// Index database for the archive folder
	IndexPath string `yaml:"index_path"`

	// Analysis service (collaborator) settings
	AnalysisURL     string        `yaml:"analysis_url"`
	AnalysisModel   string        `yaml:"analysis_model"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	// Parsing settings
	ThreadDelimiter string `yaml:"thread_delimiter"`
	MaxDepth        int    `yaml:"max_depth"`
	Workers         int    `yaml:"workers"`

	// Verbose enables debug-level logging
	Verbose bool `yaml:"verbose"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, ".msg-analyzer")

	return &Config{
		Host:            "localhost",
		Port:            "8080",
		ArchivePath:     "./emails_archive",
		IndexPath:       filepath.Join(dataDir, "archive.db"),
		AnalysisURL:     "http://localhost:9090/invoke",
		AnalysisModel:   "EmailMonitor1",
		AnalysisTimeout: 60 * time.Second,
		ThreadDelimiter: "-----Original Message-----",
		MaxDepth:        25,
		Workers:         4,
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order. The first readable path from
// candidatePaths wins; a missing file is not an error.
func Load(candidatePaths ...string) (*Config, error) {
	cfg := Default()

	if len(candidatePaths) == 0 {
		candidatePaths = []string{
			"/etc/msg-analyzer/config.yaml",
			"./config.yaml",
		}
	}

	for _, path := range candidatePaths {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		break
	}

	cfg.applyEnv()

	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, nil
}

// applyEnv overrides fields from MSGANALYZER_* environment variables
func (c *Config) applyEnv() {
	if v := os.Getenv("MSGANALYZER_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("MSGANALYZER_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("MSGANALYZER_ARCHIVE_PATH"); v != "" {
		c.ArchivePath = v
	}
	if v := os.Getenv("MSGANALYZER_INDEX_PATH"); v != "" {
		c.IndexPath = v
	}
	if v := os.Getenv("MSGANALYZER_ANALYSIS_URL"); v != "" {
		c.AnalysisURL = v
	}
	if v := os.Getenv("MSGANALYZER_ANALYSIS_MODEL"); v != "" {
		c.AnalysisModel = v
	}
	if v := os.Getenv("MSGANALYZER_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if v := os.Getenv("MSGANALYZER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("MSGANALYZER_VERBOSE"); v != "" {
		c.Verbose = v == "1" || v == "true"
	}
}

// Address returns the full server address
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// URL returns the full server URL
func (c *Config) URL() string {
	return "http://" + c.Address()
}
