// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Probe      ProbeConfig      `yaml:"probe"`
	Wake       WakeConfig       `yaml:"wake"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
	Hosts      []HostConfig     `yaml:"hosts"`
	Include    IncludeConfig    `yaml:"include"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Path             string        `yaml:"path"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	HistoryRetention time.Duration `yaml:"history_retention"`
}

type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	// Interval between classification cycles.
	Interval time.Duration `yaml:"interval"`
	// TCPPort is the secondary probe used when ping is inconclusive
	// (ICMP filtered).
	TCPPort int `yaml:"tcp_port"`
	// DebounceThreshold is how many consecutive offline verdicts make a
	// host a wake candidate.
	DebounceThreshold int `yaml:"debounce_threshold"`
}

type WakeConfig struct {
	// BroadcastAddr is where magic packets are sent.
	BroadcastAddr string `yaml:"broadcast_addr"`
	Port          int    `yaml:"port"`
	// ListenPort accepts inbound magic packets as wake triggers; 0
	// disables the listener.
	ListenPort      int           `yaml:"listen_port"`
	ConfirmDeadline time.Duration `yaml:"confirm_deadline"`
	ConfirmInterval time.Duration `yaml:"confirm_interval"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HostConfig struct {
	ID      string            `yaml:"id"`
	Name    string            `yaml:"name"`
	IPv4    string            `yaml:"ipv4"`
	MAC     string            `yaml:"mac"`
	Labels  map[string]string `yaml:"labels"`
	Enabled bool              `yaml:"enabled"`
}

type IncludeConfig struct {
	Directory string `yaml:"directory"`
	Pattern   string `yaml:"pattern"`
	Enabled   bool   `yaml:"enabled"`
}

// PartialConfig represents a partial configuration that can be merged
type PartialConfig struct {
	Server     *ServerConfig     `yaml:"server,omitempty"`
	Database   *DatabaseConfig   `yaml:"database,omitempty"`
	Probe      *ProbeConfig      `yaml:"probe,omitempty"`
	Wake       *WakeConfig       `yaml:"wake,omitempty"`
	Prometheus *PrometheusConfig `yaml:"prometheus,omitempty"`
	Logging    *LoggingConfig    `yaml:"logging,omitempty"`
	Hosts      []HostConfig      `yaml:"hosts,omitempty"`
}

func Load(filename string) (*Config, error) {
	// Load the main config file
	config, err := loadConfigFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config file: %w", err)
	}

	// Process includes if enabled
	if config.Include.Enabled && config.Include.Directory != "" {
		if err := loadIncludes(config, filepath.Dir(filename)); err != nil {
			return nil, fmt.Errorf("failed to load includes: %w", err)
		}
	}

	// Set defaults
	setDefaults(config)

	// Validate
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func loadConfigFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &config, nil
}

func loadIncludes(config *Config, baseDir string) error {
	includeDir := config.Include.Directory

	// Make include directory relative to main config file if not absolute
	if !filepath.IsAbs(includeDir) {
		includeDir = filepath.Join(baseDir, includeDir)
	}

	if _, err := os.Stat(includeDir); os.IsNotExist(err) {
		return fmt.Errorf("include directory does not exist: %s", includeDir)
	}

	pattern := config.Include.Pattern
	if pattern == "" {
		pattern = "*.yaml"
	}

	matches, err := filepath.Glob(filepath.Join(includeDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to glob include pattern: %w", err)
	}

	if pattern == "*.yaml" {
		ymlMatches, err := filepath.Glob(filepath.Join(includeDir, "*.yml"))
		if err != nil {
			return fmt.Errorf("failed to glob .yml files: %w", err)
		}
		matches = append(matches, ymlMatches...)
	}

	// Sort files for consistent ordering
	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})

	for _, match := range matches {
		if err := loadAndMergeInclude(config, match); err != nil {
			return fmt.Errorf("failed to load include file %s: %w", match, err)
		}
	}

	return nil
}

func loadAndMergeInclude(config *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read include file: %w", err)
	}

	var partial PartialConfig
	if err := yaml.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("failed to parse include file YAML: %w", err)
	}

	mergePartialConfig(config, &partial)

	return nil
}

func mergePartialConfig(config *Config, partial *PartialConfig) {
	// Merge hosts (append to existing)
	if len(partial.Hosts) > 0 {
		config.Hosts = append(config.Hosts, partial.Hosts...)
	}

	// For other sections, only override if they exist in the partial config
	if partial.Server != nil {
		mergeServerConfig(&config.Server, partial.Server)
	}
	if partial.Database != nil {
		mergeDatabaseConfig(&config.Database, partial.Database)
	}
	if partial.Probe != nil {
		mergeProbeConfig(&config.Probe, partial.Probe)
	}
	if partial.Wake != nil {
		mergeWakeConfig(&config.Wake, partial.Wake)
	}
	if partial.Prometheus != nil {
		mergePrometheusConfig(&config.Prometheus, partial.Prometheus)
	}
	if partial.Logging != nil {
		mergeLoggingConfig(&config.Logging, partial.Logging)
	}
}

func mergeServerConfig(main *ServerConfig, partial *ServerConfig) {
	if partial.Port != "" {
		main.Port = partial.Port
	}
	if partial.ReadTimeout != 0 {
		main.ReadTimeout = partial.ReadTimeout
	}
	if partial.WriteTimeout != 0 {
		main.WriteTimeout = partial.WriteTimeout
	}
}

func mergeDatabaseConfig(main *DatabaseConfig, partial *DatabaseConfig) {
	if partial.Path != "" {
		main.Path = partial.Path
	}
	if partial.CleanupInterval != 0 {
		main.CleanupInterval = partial.CleanupInterval
	}
	if partial.HistoryRetention != 0 {
		main.HistoryRetention = partial.HistoryRetention
	}
}

func mergeProbeConfig(main *ProbeConfig, partial *ProbeConfig) {
	if partial.Timeout != 0 {
		main.Timeout = partial.Timeout
	}
	if partial.Interval != 0 {
		main.Interval = partial.Interval
	}
	if partial.TCPPort != 0 {
		main.TCPPort = partial.TCPPort
	}
	if partial.DebounceThreshold != 0 {
		main.DebounceThreshold = partial.DebounceThreshold
	}
}

func mergeWakeConfig(main *WakeConfig, partial *WakeConfig) {
	if partial.BroadcastAddr != "" {
		main.BroadcastAddr = partial.BroadcastAddr
	}
	if partial.Port != 0 {
		main.Port = partial.Port
	}
	if partial.ListenPort != 0 {
		main.ListenPort = partial.ListenPort
	}
	if partial.ConfirmDeadline != 0 {
		main.ConfirmDeadline = partial.ConfirmDeadline
	}
	if partial.ConfirmInterval != 0 {
		main.ConfirmInterval = partial.ConfirmInterval
	}
	if partial.MaxRetries != 0 {
		main.MaxRetries = partial.MaxRetries
	}
	if partial.RetryBackoff != 0 {
		main.RetryBackoff = partial.RetryBackoff
	}
}

func mergePrometheusConfig(main *PrometheusConfig, partial *PrometheusConfig) {
	main.Enabled = partial.Enabled
	if partial.MetricsPath != "" {
		main.MetricsPath = partial.MetricsPath
	}
}

func mergeLoggingConfig(main *LoggingConfig, partial *LoggingConfig) {
	if partial.Level != "" {
		main.Level = partial.Level
	}
	if partial.Format != "" {
		main.Format = partial.Format
	}
}

func setDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8000"
	}

	// Database defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/wakeward.db"
	}
	if cfg.Database.CleanupInterval == 0 {
		cfg.Database.CleanupInterval = 6 * time.Hour
	}
	if cfg.Database.HistoryRetention == 0 {
		cfg.Database.HistoryRetention = 7 * 24 * time.Hour
	}

	// Probe defaults
	if cfg.Probe.Timeout == 0 {
		cfg.Probe.Timeout = 3 * time.Second
	}
	if cfg.Probe.Interval == 0 {
		cfg.Probe.Interval = 30 * time.Second
	}
	if cfg.Probe.TCPPort == 0 {
		cfg.Probe.TCPPort = 22
	}
	if cfg.Probe.DebounceThreshold == 0 {
		cfg.Probe.DebounceThreshold = 3
	}

	// Wake defaults
	if cfg.Wake.BroadcastAddr == "" {
		cfg.Wake.BroadcastAddr = "255.255.255.255"
	}
	if cfg.Wake.Port == 0 {
		cfg.Wake.Port = 9
	}
	if cfg.Wake.ConfirmDeadline == 0 {
		cfg.Wake.ConfirmDeadline = 60 * time.Second
	}
	if cfg.Wake.ConfirmInterval == 0 {
		cfg.Wake.ConfirmInterval = 5 * time.Second
	}
	if cfg.Wake.MaxRetries == 0 {
		cfg.Wake.MaxRetries = 3
	}
	if cfg.Wake.RetryBackoff == 0 {
		cfg.Wake.RetryBackoff = 2 * time.Second
	}

	// Prometheus defaults
	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	// Include defaults
	if cfg.Include.Pattern == "" {
		cfg.Include.Pattern = "*.yaml"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func validate(cfg *Config) error {
	if cfg.Probe.Timeout <= 0 {
		return fmt.Errorf("probe.timeout must be positive")
	}
	if cfg.Probe.Interval <= 0 {
		return fmt.Errorf("probe.interval must be positive")
	}
	if cfg.Probe.DebounceThreshold < 1 {
		return fmt.Errorf("probe.debounce_threshold must be at least 1")
	}
	if cfg.Probe.TCPPort < 1 || cfg.Probe.TCPPort > 65535 {
		return fmt.Errorf("probe.tcp_port must be a valid port")
	}

	if cfg.Wake.Port < 1 || cfg.Wake.Port > 65535 {
		return fmt.Errorf("wake.port must be a valid port")
	}
	if cfg.Wake.ListenPort < 0 || cfg.Wake.ListenPort > 65535 {
		return fmt.Errorf("wake.listen_port must be a valid port or 0")
	}
	if cfg.Wake.ConfirmDeadline <= 0 {
		return fmt.Errorf("wake.confirm_deadline must be positive")
	}
	if cfg.Wake.ConfirmInterval <= 0 || cfg.Wake.ConfirmInterval > cfg.Wake.ConfirmDeadline {
		return fmt.Errorf("wake.confirm_interval must be positive and within the deadline")
	}
	if cfg.Wake.MaxRetries < 1 {
		return fmt.Errorf("wake.max_retries must be at least 1")
	}

	// Validate include configuration
	if cfg.Include.Enabled {
		if cfg.Include.Directory == "" {
			return fmt.Errorf("include.directory must be specified when include.enabled is true")
		}
		if cfg.Include.Pattern != "" && !isValidGlobPattern(cfg.Include.Pattern) {
			return fmt.Errorf("include.pattern contains invalid glob pattern: %s", cfg.Include.Pattern)
		}
	}

	// Duplicate host IDs are a config error; per-host address validation
	// happens at ingestion so one bad host never sinks the batch.
	hostIDs := make(map[string]bool)
	for _, host := range cfg.Hosts {
		if host.ID == "" {
			continue
		}
		if hostIDs[host.ID] {
			return fmt.Errorf("duplicate host ID: %s", host.ID)
		}
		hostIDs[host.ID] = true
	}

	return nil
}

// isValidGlobPattern checks if a string is a valid glob pattern
func isValidGlobPattern(pattern string) bool {
	if strings.Contains(pattern, "/") || strings.Contains(pattern, "\\") {
		return false
	}
	_, err := filepath.Match(pattern, "test.yaml")
	return err == nil
}
