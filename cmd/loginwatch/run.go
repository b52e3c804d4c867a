package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"loginwatch/browser"
	"loginwatch/logger"
	"loginwatch/notify"
	"loginwatch/probe"
	"loginwatch/result"
	"loginwatch/runner"
	"loginwatch/storage"
	"loginwatch/verdict"
)

var configFile string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe the panel with the configured credentials",
	RunE:  runProbe,
}

func init() {
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(runCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	creds, err := cfg.LoadCredentials()
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	// Initialize logger
	log := logger.NewLogrusLogger(cfg.Log.Level)
	log.Info(ctx, "starting login probe", map[string]interface{}{
		"version":  Version,
		"commit":   Commit,
		"date":     BuildDate,
		"base_url": cfg.Run.BaseURL,
		"attempts": len(creds),
	})

	// Browser
	browserCfg := browser.DefaultConfig()
	browserCfg.ChromePath = cfg.Browser.ChromePath
	browserCfg.Headless = cfg.Browser.Headless
	browserCfg.ViewportWidth = cfg.Browser.ViewportWidth
	browserCfg.ViewportHeight = cfg.Browser.ViewportHeight
	browserCfg.NavTimeout = cfg.Browser.NavTimeout

	rodBrowser := browser.NewRodBrowser(browserCfg, log)
	defer rodBrowser.Shutdown()

	// Probe configuration
	probeCfg := probe.DefaultConfig()
	probeCfg.HomeIndicator = cfg.Probe.HomeIndicator
	probeCfg.HomeIndicatorRequired = cfg.Probe.HomeIndicatorRequired
	if len(cfg.Probe.LoginRouteAliases) > 0 {
		probeCfg.RouteAliases = cfg.Probe.LoginRouteAliases
	}
	probeCfg.BannerYThreshold = cfg.Probe.BannerYThreshold

	resolverCfg := verdict.DefaultResolverConfig()
	resolverCfg.PollWindow = cfg.Run.PollWindow
	resolverCfg.SettleDelay = cfg.Run.SettleDelay

	runCfg := runner.DefaultConfig()
	runCfg.BaseURL = cfg.Run.BaseURL
	runCfg.ReadinessTimeout = cfg.Run.ReadinessTimeout
	runCfg.InterAttemptDelay = cfg.Run.InterAttemptDelay
	runCfg.ArtifactsEnabled = cfg.Artifacts.Enabled

	r := runner.New(runCfg, probeCfg, verdict.DefaultTranscriptRules(), resolverCfg, rodBrowser, log)

	// Artifacts
	if cfg.Artifacts.Enabled {
		artifacts, err := storage.New(storage.Config{
			Type:    cfg.Artifacts.Type,
			BaseDir: cfg.Artifacts.BaseDir,
			Bucket:  cfg.Artifacts.Bucket,
			Region:  cfg.Artifacts.Region,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize artifact storage: %w", err)
		}
		r.WithArtifacts(artifacts)
	}

	// History
	if cfg.History.Enabled {
		store, err := openHistoryStore(cfg.History, log)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		r.WithHistory(store)
	}

	// Notification
	if cfg.Notify.WebhookURL != "" {
		r.WithNotifier(notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.MaxLen, log))
	}

	summary, err := r.Run(ctx, creds)
	if err != nil {
		return err
	}

	// The summary is the program's stdout output; logs go to stderr.
	fmt.Println(summary.Format())
	return nil
}

// openHistoryStore opens the configured history database and ensures the
// schema is current.
func openHistoryStore(cfg HistoryConfig, log logger.Logger) (result.Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported history driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	store := result.NewGormStore(db, log)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	return store, nil
}
