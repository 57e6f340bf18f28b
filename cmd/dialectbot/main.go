package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"dialectbot/internal/bus"
	"dialectbot/internal/channel"
	"dialectbot/internal/config"
	"dialectbot/internal/conversation"
	"dialectbot/internal/dashboard"
	"dialectbot/internal/dialect"
	"dialectbot/internal/domain"
	"dialectbot/internal/generator"
	"dialectbot/internal/learning"
	"dialectbot/internal/orchestrator"
	"dialectbot/internal/storage"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "dialectbot",
		Short: "dialectbot: Arabic multi-dialect conversational relay",
		Long:  "dialectbot detects the Arabic dialect of incoming group messages, generates replies through an LLM backend, and refines them toward the detected dialect.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.dialectbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(config.ExpandPath(cfg.General.DataDir), 0o755); err != nil {
				return err
			}
			if err := os.MkdirAll(config.ExpandPath(cfg.Learning.DataDir), 0o755); err != nil {
				return err
			}
			logger.Info("Initialized", "config", cfgPath, "data_dir", cfg.General.DataDir)
			return nil
		},
	}
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start interactive chat (CLI)",
		RunE:  runChat,
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Start all enabled channels, the message loop, and the dashboard",
		Long:  "Starts the enabled channels (Telegram, Discord, Slack), the message loop, the group sweeper, and the admin dashboard. Press Ctrl+C to stop.",
		RunE:  runGateway,
	}
}

// core bundles the conversation pipeline built from config.
type core struct {
	orch    *orchestrator.Orchestrator
	loop    *orchestrator.Loop
	sweeper *orchestrator.Sweeper
	store   domain.InteractionStore
	lexicon *dialect.Lexicon
	events  *bus.EventBus
}

// buildCore wires the pipeline: lexicon, detector, refiner, memory,
// learner, generator chain, optional interaction store, orchestrator.
func buildCore(cfg *config.Config, messageBus domain.MessageBus) (*core, error) {
	lex := dialect.NewLexicon()
	if cfg.Dialects.File != "" {
		if err := lex.LoadFile(config.ExpandPath(cfg.Dialects.File)); err != nil {
			return nil, fmt.Errorf("dialect lexicon: %w", err)
		}
	}

	learnDir := config.ExpandPath(cfg.Learning.DataDir)
	if cfg.Learning.Enabled {
		if err := os.MkdirAll(learnDir, 0o755); err != nil {
			return nil, fmt.Errorf("learning data dir: %w", err)
		}
	}

	var store domain.InteractionStore
	if cfg.Storage.Enabled {
		s, err := storage.NewSQLiteStore(config.ExpandPath(cfg.Storage.DBPath), logger)
		if err != nil {
			return nil, fmt.Errorf("interaction store: %w", err)
		}
		store = s
	}

	factory := generator.NewFactory(cfg, logger)
	chain, err := factory.Chain()
	if err != nil {
		return nil, fmt.Errorf("generator chain: %w", err)
	}

	events := bus.NewEventBus(logger)

	orch := orchestrator.New(orchestrator.Config{
		Detector: dialect.NewDetector(lex),
		Refiner:  dialect.NewRefiner(lex, nil),
		Memory:   conversation.NewManager(cfg.Conversation.MaxHistory, nil, logger),
		Learner:  learning.NewManager(learnDir, cfg.Learning.Enabled, logger),
		Chain:    chain,
		Fallback: generator.NewStatic(),
		Store:    store,
		Events:   events,
		Logger:   logger,

		GeneratorTimeout: time.Duration(cfg.General.GeneratorTimeoutS) * time.Second,
	})

	loop := orchestrator.NewLoop(orchestrator.LoopConfig{
		Orchestrator: orch,
		Bus:          messageBus,
		Logger:       logger,
		Concurrency:  cfg.General.MaxConcurrentMessages,
	})

	var sweeper *orchestrator.Sweeper
	if cfg.Conversation.SweepIntervalMinutes > 0 {
		sweeper = orchestrator.NewSweeper(orch,
			time.Duration(cfg.Conversation.SweepIntervalMinutes)*time.Minute,
			time.Duration(cfg.Conversation.InactiveHours)*time.Hour,
			logger)
	}

	return &core{
		orch:    orch,
		loop:    loop,
		sweeper: sweeper,
		store:   store,
		lexicon: lex,
		events:  events,
	}, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("Config not found, using defaults", "path", cfgPath, "error", err)
		cfg = config.Defaults()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)
	defer messageBus.Close()

	c, err := buildCore(cfg, messageBus)
	if err != nil {
		return err
	}
	if c.store != nil {
		defer c.store.Close()
	}

	go c.loop.Run(ctx)
	if c.sweeper != nil {
		go c.sweeper.Run(ctx)
	}

	cliCh := channel.NewCLI(channel.CLIConfig{Logger: logger})
	return cliCh.Start(ctx, messageBus)
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	messageBus := bus.New(100, logger)

	c, err := buildCore(cfg, messageBus)
	if err != nil {
		return err
	}
	if c.store != nil {
		defer c.store.Close()
	}

	go c.loop.Run(ctx)
	if c.sweeper != nil {
		go c.sweeper.Run(ctx)
	}

	var channels []domain.Channel

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		channels = append(channels, channel.NewTelegram(channel.TelegramConfig{
			Token:       cfg.Channels.Telegram.Token,
			AllowGroups: cfg.Channels.Telegram.AllowFrom,
			Logger:      logger,
		}))
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		channels = append(channels, channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger,
		}))
	}
	if cfg.Channels.Slack.Enabled && cfg.Channels.Slack.BotToken != "" {
		channels = append(channels, channel.NewSlack(channel.SlackConfig{
			BotToken: cfg.Channels.Slack.BotToken,
			AppToken: cfg.Channels.Slack.AppToken,
			Logger:   logger,
		}))
	}
	if len(channels) == 0 {
		return fmt.Errorf("no channel enabled; enable telegram, discord, or slack in %s", cfgPath)
	}

	for _, ch := range channels {
		go func(ch domain.Channel) {
			if err := ch.Start(ctx, messageBus); err != nil {
				logger.Error("Channel error", "channel", ch.Name(), "error", err)
			}
		}(ch)
		logger.Info("Channel enabled", "channel", ch.Name())
	}

	if cfg.Dashboard.Enabled {
		srv := dashboard.NewServer(dashboard.ServerConfig{
			Host:              cfg.Dashboard.Host,
			Port:              cfg.Dashboard.Port,
			Orch:              c.orch,
			Store:             c.store,
			Dialects:          c.lexicon.Names(),
			Logger:            logger,
			InactiveThreshold: time.Duration(cfg.Conversation.InactiveHours) * time.Hour,
		})
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("Dashboard error", "error", err)
			}
		}()
	}

	logger.Info("Gateway started. Press Ctrl+C to stop.", "version", version)

	<-ctx.Done()
	logger.Info("Shutting down gateway")

	const shutdownTimeout = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range channels {
			ch.Stop()
		}
		messageBus.Close()
	}()

	select {
	case <-done:
		logger.Info("Shutdown complete")
		return nil
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show generator health and config status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				logger.Info("Config", "path", cfgPath, "loaded", false)
				cfg = config.Defaults()
			} else {
				logger.Info("Config", "path", cfgPath, "loaded", true)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			factory := generator.NewFactory(cfg, logger)
			for name, gc := range cfg.Generators {
				if !gc.Enabled {
					logger.Info("Generator", "name", name, "enabled", false)
					continue
				}
				g, err := factory.Get(name)
				if err != nil {
					logger.Warn("Generator", "name", name, "error", err)
					continue
				}
				if err := g.Healthy(ctx); err != nil {
					logger.Warn("Generator", "name", name, "healthy", false, "error", err)
				} else {
					logger.Info("Generator", "name", name, "healthy", true)
				}
			}
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Trigger an inactive-group sweep on a running gateway",
		Long:  "Calls the running gateway's dashboard API to evict groups idle past the configured threshold.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if !cfg.Dashboard.Enabled {
				return fmt.Errorf("dashboard disabled; sweep requires the dashboard API")
			}

			url := fmt.Sprintf("http://%s:%d/api/sweep", cfg.Dashboard.Host, cfg.Dashboard.Port)
			resp, err := http.Post(url, "application/json", nil)
			if err != nil {
				return fmt.Errorf("sweep request: %w", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			fmt.Println(string(body))
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. general.defaultGenerator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. general.defaultGenerator ollama)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("Config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			sanitized := config.Sanitize(cfg)
			data, _ := json.MarshalIndent(sanitized, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}
