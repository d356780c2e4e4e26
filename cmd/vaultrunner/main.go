// Package main is the entry point for the vault-runner binary. It wires
// the chain RPC client, HTTP fetcher, and process supervisor into an
// update loop, then blocks until SIGINT/SIGTERM triggers a graceful
// shutdown.
//
// Startup sequence:
//  1. Parse CLI flags / environment variables
//  2. Build logger
//  3. Dial the chain node's WebSocket RPC endpoint
//  4. Build the fetcher, supervisor, and update loop
//  5. Race the update loop against OS signals until one of them ends it
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/interlay/vault-runner/internal/chain"
	"github.com/interlay/vault-runner/internal/fetch"
	"github.com/interlay/vault-runner/internal/supervisor"
	"github.com/interlay/vault-runner/internal/updater"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type config struct {
	rpcURL      string
	downloadDir string
	vaultArgs   []string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "vault-runner",
		Short: "Vault Runner — self-updating supervisor for the vault client",
		Long: `Vault Runner watches the chain's VaultRegistry pallet for the current
published client release, downloads its binary, and supervises exactly
one running instance of it, replacing the process whenever the chain
publishes a new release.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	var vaultArgsCSV string
	root.PersistentFlags().StringVar(&cfg.rpcURL, "rpc-url", envOrDefault("VAULT_RUNNER_RPC_URL", "ws://127.0.0.1:9944"), "chain node WebSocket RPC endpoint")
	root.PersistentFlags().StringVar(&cfg.downloadDir, "download-dir", envOrDefault("VAULT_RUNNER_DOWNLOAD_DIR", defaultDownloadDir()), "directory where downloaded worker binaries are stored")
	root.PersistentFlags().StringVar(&vaultArgsCSV, "vault-args", envOrDefault("VAULT_RUNNER_VAULT_ARGS", ""), "comma-separated argument vector passed to the worker binary on every spawn")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", envOrDefault("VAULT_RUNNER_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	cobra.OnInitialize(func() {
		if vaultArgsCSV != "" {
			cfg.vaultArgs = strings.Split(vaultArgsCSV, ",")
		}
	})

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vault-runner %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context, cfg *config) error {
	logger, err := buildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting vault runner",
		zap.String("version", version),
		zap.String("rpc_url", cfg.rpcURL),
		zap.String("download_dir", cfg.downloadDir),
		zap.Strings("vault_args", cfg.vaultArgs),
	)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(signals)

	chainClient, err := chain.Dial(ctx, cfg.rpcURL, logger)
	if err != nil {
		return fmt.Errorf("failed to dial chain node: %w", err)
	}
	defer chainClient.Close()

	fetcher := fetch.New(logger)
	sup := supervisor.New(logger)
	loop := updater.New(logger, chainClient, fetcher, sup, cfg.downloadDir, cfg.vaultArgs, os.Stdout)

	err = updater.RunWithShutdown(ctx, signals, loop, sup)
	if err != nil {
		logger.Error("vault runner stopped with an error", zap.Error(err))
		return err
	}

	logger.Info("vault runner stopped")
	return nil
}

// defaultDownloadDir returns the platform-appropriate default location
// for downloaded worker binaries: ~/.vault-runner/bin.
func defaultDownloadDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir + "/.vault-runner/bin"
	}
	return ".vault-runner/bin"
}

func buildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config

	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
