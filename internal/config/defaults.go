package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			DataDir:               "~/.dialectbot/data",
			LogLevel:              "info",
			DefaultGenerator:      "ollama",
			MaxConcurrentMessages: 5,
			GeneratorTimeoutS:     60,
		},
		Generators: map[string]GeneratorConfig{
			"ollama": {
				Enabled:      true,
				Kind:         "ollama",
				APIBase:      "http://localhost:11434",
				DefaultModel: "qwen2.5:7b-instruct",
			},
			"static": {
				Enabled: true,
				Kind:    "static",
			},
		},
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{
				Enabled:   false,
				ParseMode: "",
			},
			Discord: DiscordConfig{
				Enabled: false,
			},
			Slack: SlackConfig{
				Enabled: false,
			},
			CLI: CLIConfig{
				Enabled: true,
			},
		},
		Conversation: ConversationConfig{
			MaxHistory:           5,
			InactiveHours:        24,
			SweepIntervalMinutes: 60,
		},
		Learning: LearningConfig{
			Enabled: true,
			DataDir: "~/.dialectbot/data/learned",
		},
		Storage: StorageConfig{
			Enabled: true,
			DBPath:  "~/.dialectbot/data/interactions.db",
		},
		Dashboard: DashboardConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8090,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
	}
}
