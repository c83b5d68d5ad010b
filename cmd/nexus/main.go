package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nexus-chat/internal/adapter/telegram"
	"nexus-chat/internal/adapter/terminal"
	"nexus-chat/internal/adapter/web"
	"nexus-chat/internal/config"
	"nexus-chat/internal/logger"
)

var version = "0.1.0"

var (
	envFile      string
	withTelegram bool
)

var rootCmd = &cobra.Command{
	Use:           "nexus",
	Short:         "Nexus AI - chat with an OpenAI-compatible model",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser chat page",
	RunE:  runServe,
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Run the Telegram bot",
	RunE:  runTelegram,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat in the terminal",
	RunE:  runREPL,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nexus v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.String("log-level", "", "log level (debug|info|warn|error)")
	flags.String("log-file", "", "write logs to this file instead of stderr")
	flags.String("backend", "", "completion backend (live|simulated)")
	flags.String("listen", "", "web listen address")
	flags.String("prefs-db", "", "sqlite file for preferences, :memory: keeps them in memory")

	serveCmd.Flags().BoolVar(&withTelegram, "telegram", false, "also run the Telegram bot")

	rootCmd.AddCommand(serveCmd, telegramCmd, replCmd, versionCmd)
}

// setup loads configuration and configures logging. The returned cleanup
// closes the log file.
func setup(cmd *cobra.Command) (config.Config, func(), error) {
	cfg, err := config.Load(envFile, cmd.Flags())
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	closer, err := logger.Configure(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return cfg, nil, fmt.Errorf("open log file: %w", err)
	}
	return cfg, func() { _ = closer.Close() }, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if withTelegram {
		if err := cfg.RequireTelegram(); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, cfg.DefaultTheme)
	if err != nil {
		return err
	}
	defer a.Close()

	log := logger.New("web")
	server := web.NewServer(ctx, a.chat, a.speech, a.theme, log)
	httpServer := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", "http://"+cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		err := httpServer.Shutdown(shutdownCtx)
		server.Wait()
		return err
	})
	g.Go(func() error {
		return a.sweepSessions(gctx, logger.New("sessions"))
	})
	if withTelegram {
		g.Go(func() error {
			return runBot(gctx, a, cfg)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("stopped")
	return nil
}

func runTelegram(cmd *cobra.Command, _ []string) error {
	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg, cfg.DefaultTheme)
	if err != nil {
		return err
	}
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runBot(gctx, a, cfg)
	})
	g.Go(func() error {
		return a.sweepSessions(gctx, logger.New("sessions"))
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runBot(ctx context.Context, a *app, cfg config.Config) error {
	bot, err := telegram.NewBot(cfg, a.chat, a.speech, logger.New("telegram"))
	if err != nil {
		return err
	}
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("telegram bot: %w", err)
	}
	return nil
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cfg, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	fallback := cfg.DefaultTheme
	if os.Getenv("NEXUS_THEME") == "" {
		fallback = terminal.DetectTheme()
	}

	a, err := newApp(ctx, cfg, fallback)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	repl := terminal.NewREPL(ctx, a.chat, a.speech, a.theme, logger.New("repl"), out, termenv.NewOutput(out).EnvColorProfile())
	return repl.Run(ctx)
}
