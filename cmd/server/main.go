package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskmate/config"
	"taskmate/pkg/logger"
	pkgconfig "taskmate/pkg/config"
)

var (
	configDir string
	configEnv string
	devLog    bool
)

var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "taskmate task tracker with a chat assistant",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", pkgconfig.GetEnv("CONFIG_DIR", "config"), "directory holding base.yaml, <env>.yaml and secrets.env")
	rootCmd.PersistentFlags().StringVar(&configEnv, "env", pkgconfig.GetConfigEnv(), "config environment (CONFIG_ENV)")
	rootCmd.PersistentFlags().BoolVar(&devLog, "dev", false, "human readable logs")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// bootstrap 加载配置并创建 logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	var log *zap.Logger
	if devLog {
		log = logger.NewDevelopment()
	} else {
		log = logger.NewLogger()
	}

	cfg, err := config.Load(configEnv, configDir)
	if err != nil {
		return nil, log, fmt.Errorf("load config: %w", err)
	}
	log.Info("Configuration loaded",
		zap.String("env", configEnv),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("action_mode", cfg.Chat.ActionMode),
	)
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
