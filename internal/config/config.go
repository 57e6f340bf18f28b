package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Config is the root configuration for dialectbot.
type Config struct {
	General      GeneralConfig              `json:"general"`
	Generators   map[string]GeneratorConfig `json:"generators"`
	Channels     ChannelsConfig             `json:"channels"`
	Conversation ConversationConfig         `json:"conversation"`
	Learning     LearningConfig             `json:"learning"`
	Dialects     DialectsConfig             `json:"dialects"`
	Storage      StorageConfig              `json:"storage"`
	Dashboard    DashboardConfig            `json:"dashboard"`
	Metrics      MetricsConfig              `json:"metrics"`
}

type GeneralConfig struct {
	DataDir               string   `json:"dataDir"`
	LogLevel              string   `json:"logLevel"`
	LogFile               string   `json:"logFile,omitempty"`
	DefaultGenerator      string   `json:"defaultGenerator"`
	FailoverChain         []string `json:"failoverChain,omitempty"` // generator failover order
	MaxConcurrentMessages int      `json:"maxConcurrentMessages"`
	GeneratorTimeoutS     int      `json:"generatorTimeoutSeconds"`
}

type GeneratorConfig struct {
	Enabled      bool   `json:"enabled"`
	Kind         string `json:"kind"` // "ollama" | "openai" | "static"
	APIBase      string `json:"apiBase,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
	DefaultModel string `json:"defaultModel,omitempty"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord,omitempty"`
	Slack    SlackConfig    `json:"slack,omitempty"`
	CLI      CLIConfig      `json:"cli"`
}

type TelegramConfig struct {
	Enabled   bool           `json:"enabled"`
	Token     string         `json:"token"`
	AllowFrom FlexStringList `json:"allowFrom"`
	ParseMode string         `json:"parseMode"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	GuildID string `json:"guildId,omitempty"` // optional: restrict to one guild
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	AppToken string `json:"appToken"` // required for Socket Mode
}

type CLIConfig struct {
	Enabled bool `json:"enabled"`
}

type ConversationConfig struct {
	MaxHistory           int `json:"maxHistory"`           // history keeps 2 × maxHistory lines
	InactiveHours        int `json:"inactiveHours"`        // sweep threshold
	SweepIntervalMinutes int `json:"sweepIntervalMinutes"` // 0 = no background sweeper
}

type LearningConfig struct {
	Enabled bool   `json:"enabled"`
	DataDir string `json:"dataDir"` // one learned_<dialect>.json per dialect
}

type DialectsConfig struct {
	File string `json:"file,omitempty"` // optional YAML lexicon merged over built-ins
}

type StorageConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type DashboardConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays containing
// both strings and numbers (e.g. ["123", 456] both become "123", "456").
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	// Fallback: array of mixed types
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns the default config directory (~/.dialectbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dialectbot"
	}
	return filepath.Join(home, ".dialectbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Learning.DataDir = ExpandPath(cfg.Learning.DataDir)
	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)
	cfg.Dialects.File = ExpandPath(cfg.Dialects.File)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.MaxConcurrentMessages < 1 || cfg.General.MaxConcurrentMessages > 100 {
		errs = append(errs, "general.maxConcurrentMessages must be between 1 and 100")
	}
	if cfg.General.GeneratorTimeoutS < 1 {
		errs = append(errs, "general.generatorTimeoutSeconds must be >= 1")
	}

	if cfg.Conversation.MaxHistory < 1 {
		errs = append(errs, "conversation.maxHistory must be >= 1")
	}
	if cfg.Conversation.InactiveHours < 1 {
		errs = append(errs, "conversation.inactiveHours must be >= 1")
	}
	if cfg.Conversation.SweepIntervalMinutes < 0 {
		errs = append(errs, "conversation.sweepIntervalMinutes must be >= 0")
	}

	if cfg.Dashboard.Port < 0 || cfg.Dashboard.Port > 65535 {
		errs = append(errs, "dashboard.port must be between 0 and 65535")
	}

	// Validate failover chain references exist in generators.
	for _, genName := range cfg.General.FailoverChain {
		if _, ok := cfg.Generators[genName]; !ok {
			errs = append(errs, fmt.Sprintf("general.failoverChain references unknown generator: %s", genName))
		}
	}

	for name, gc := range cfg.Generators {
		switch gc.Kind {
		case "ollama", "openai", "static", "":
			// valid; empty kind falls back to the entry name
		default:
			errs = append(errs, fmt.Sprintf("generators.%s: unknown kind %q", name, gc.Kind))
		}
		if gc.Enabled && gc.Kind == "openai" && gc.APIBase == "" {
			errs = append(errs, fmt.Sprintf("generators.%s: apiBase is required for openai kind", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
