package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config represents application configuration
type Config struct {
	// Elasticsearch configuration
	ES ESConfig

	// OneBot event source configuration
	OneBot OneBotConfig

	// Collector configuration
	Collector CollectorConfig

	// Ops endpoint configuration
	Ops OpsConfig

	// Debug mode
	Debug bool
}

// ESConfig contains Elasticsearch configuration
type ESConfig struct {
	Hosts       []string
	User        string
	Password    string
	IndexPrefix string
}

// OneBotConfig contains OneBot forward-WebSocket configuration
type OneBotConfig struct {
	WSURL       string
	AccessToken string
}

// CollectorConfig contains collector configuration
type CollectorConfig struct {
	EnableGroups        []int64
	Instance            int64 // snowflake instance tag, 0-1023
	StateDBPath         string
	SpoolDir            string
	SpoolRetentionDays  int
	ProbeTimeoutSeconds int

	// invalidGroups keeps malformed ENABLE_GROUPS entries for Validate,
	// so a typo fails startup instead of silently dropping a group
	invalidGroups []string
}

// OpsConfig contains ops endpoint configuration
type OpsConfig struct {
	Addr string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	// Elasticsearch hosts
	hosts := []string{"http://127.0.0.1:9200"}
	if val := os.Getenv("ES_HOSTS"); val != "" {
		hosts = splitCSV(val)
	}

	// Index prefix
	indexPrefix := os.Getenv("ES_INDEX_PREFIX")
	if indexPrefix == "" {
		indexPrefix = "qq-logs"
	}

	// Enabled groups
	var enableGroups []int64
	var invalidGroups []string
	for _, entry := range splitCSV(os.Getenv("ENABLE_GROUPS")) {
		id, err := strconv.ParseInt(entry, 10, 64)
		if err != nil {
			invalidGroups = append(invalidGroups, entry)
			continue
		}
		enableGroups = append(enableGroups, id)
	}

	// OneBot endpoint
	wsURL := os.Getenv("ONEBOT_WS_URL")
	if wsURL == "" {
		wsURL = "ws://127.0.0.1:6700"
	}

	// Snowflake instance tag
	var instance int64
	if val := os.Getenv("COLLECTOR_INSTANCE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			instance = parsed
		}
	}

	// State DB path
	stateDBPath := os.Getenv("STATE_DB_PATH")
	if stateDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		stateDBPath = filepath.Join(homeDir, ".histories-collector", "state.db")
	}

	// Attachment spool directory
	spoolDir := os.Getenv("SPOOL_DIR")
	if spoolDir == "" {
		homeDir, _ := os.UserHomeDir()
		spoolDir = filepath.Join(homeDir, ".histories-collector", "spool")
	}

	// Spool retention
	spoolRetentionDays := 14
	if val := os.Getenv("SPOOL_RETENTION_DAYS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			spoolRetentionDays = parsed
		}
	}

	// Attachment probe timeout
	probeTimeoutSeconds := 1800
	if val := os.Getenv("PROBE_TIMEOUT_SECONDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			probeTimeoutSeconds = parsed
		}
	}

	// Ops endpoint address
	opsAddr := os.Getenv("OPS_ADDR")
	if opsAddr == "" {
		opsAddr = ":9800"
	}

	return &Config{
		ES: ESConfig{
			Hosts:       hosts,
			User:        os.Getenv("ES_USER"),
			Password:    os.Getenv("ES_PASSWORD"),
			IndexPrefix: indexPrefix,
		},
		OneBot: OneBotConfig{
			WSURL:       wsURL,
			AccessToken: os.Getenv("ONEBOT_ACCESS_TOKEN"),
		},
		Collector: CollectorConfig{
			EnableGroups:        enableGroups,
			Instance:            instance,
			StateDBPath:         stateDBPath,
			SpoolDir:            spoolDir,
			SpoolRetentionDays:  spoolRetentionDays,
			ProbeTimeoutSeconds: probeTimeoutSeconds,
			invalidGroups:       invalidGroups,
		},
		Ops: OpsConfig{
			Addr: opsAddr,
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Collector.invalidGroups) > 0 {
		return &ConfigError{Field: "ENABLE_GROUPS", Message: "invalid group ids: " + strings.Join(c.Collector.invalidGroups, ", ")}
	}
	if c.ES.IndexPrefix == "" {
		return &ConfigError{Field: "ES_INDEX_PREFIX", Message: "required"}
	}
	if c.ES.IndexPrefix != strings.ToLower(c.ES.IndexPrefix) {
		return &ConfigError{Field: "ES_INDEX_PREFIX", Message: "must be lowercase"}
	}
	if c.Collector.Instance < 0 || c.Collector.Instance > 1023 {
		return &ConfigError{Field: "COLLECTOR_INSTANCE", Message: "must be in 0-1023"}
	}
	if c.Collector.SpoolRetentionDays < 0 {
		return &ConfigError{Field: "SPOOL_RETENTION_DAYS", Message: "must not be negative"}
	}
	if !strings.HasPrefix(c.OneBot.WSURL, "ws://") && !strings.HasPrefix(c.OneBot.WSURL, "wss://") {
		return &ConfigError{Field: "ONEBOT_WS_URL", Message: "must be a ws:// or wss:// url"}
	}
	return nil
}

func splitCSV(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
