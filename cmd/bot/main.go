package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"advisory-trading-bot/internal/logger"
	"advisory-trading-bot/internal/server"
	"advisory-trading-bot/internal/trace"
)

var (
	configPath string
	autostart  bool
)

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Advisory trading bot",
	Long: `Bot evaluates one instrument on a fixed schedule. Each tick computes indicators
on four timeframes, asks a language model for a news sentiment read, combines the two
into a BUY/SELL/HOLD recommendation and manages positions with take-profit and stop-loss.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeSystem()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot and its control API",
	Long: `Run loads the config, builds the collaborators and serves the control API.
Use POST /api/bot/start to begin ticking, or pass --autostart.`,
	RunE: runBot,
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Evaluate the market once and print the result as JSON",
	Long: `Tick fetches prices, bars and news, computes indicators and the advisory read
and prints them. It never places or closes orders; trading only happens while the
bot is running.`,
	RunE: runTick,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("advisory-trading-bot version %s\n", trace.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	runCmd.Flags().BoolVar(&autostart, "autostart", false, "start ticking immediately")

	rootCmd.AddCommand(runCmd, tickCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer shutdownObservability()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	ctrl, err := initializeController(ctx, cfg)
	if err != nil {
		return err
	}

	// Publish a first snapshot so the state endpoint is populated before trading starts.
	if _, err := ctrl.Refresh(ctx); err != nil {
		logger.Warn(ctx, "Initial market refresh failed", "error", err)
	}

	if autostart {
		if err := ctrl.Start(ctx); err != nil {
			return fmt.Errorf("start bot: %w", err)
		}
	}

	var srv *server.Server
	errc := make(chan error, 1)
	if cfg.Server.Enabled {
		srv = server.New(ctrl, trace.Version)
		go func() {
			logger.Info(ctx, "Control API listening", "addr", cfg.Server.Addr)
			errc <- srv.ListenAndServe(cfg.Server.Addr)
		}()
	} else if !autostart {
		logger.Warn(ctx, "Control API disabled and --autostart not set, bot will stay idle")
	}

	select {
	case <-ctx.Done():
		logger.Info(ctx, "Shutting down...")
	case err := <-errc:
		if err != nil {
			logger.ErrorWithErr(ctx, "Control API failed", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if srv != nil {
		errs = append(errs, srv.Shutdown(shutdownCtx))
	}
	errs = append(errs, ctrl.Stop(shutdownCtx))
	return errors.Join(errs...)
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer shutdownObservability()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	ctrl, err := initializeController(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := ctrl.Refresh(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
