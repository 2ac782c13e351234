package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joaovieira77/contactForm/internal/config"
	"github.com/joaovieira77/contactForm/internal/logging"
	"github.com/joaovieira77/contactForm/internal/metrics"
	"github.com/joaovieira77/contactForm/internal/server"
	"github.com/joaovieira77/contactForm/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configReloadDelay debounces editor save bursts on the config file.
const configReloadDelay = 300 * time.Millisecond

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the contact form server",
	Long: `Start the contact form server.

The form is served at / and works as a plain HTML form. Browsers with
JavaScript use the live channel at /ws for inline validation feedback.
Health and Prometheus metrics are served at /health and /metrics.

Examples:
  contactform serve                    # Serve on localhost:8080
  contactform serve -p 3000            # Serve on another port
  contactform serve --watch-config     # Apply config file edits without a restart`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return ValidatePortFlag(cmd.Flags(), "port")
	},
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	serveCmd.Flags().Bool("watch-config", false, "Reload the config file when it changes")

	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg, logger, metrics.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if watchConfig, _ := cmd.Flags().GetBool("watch-config"); watchConfig {
		stop, err := watchConfigFile(ctx, srv, logger)
		if err != nil {
			logger.Warn(ctx, err, "Config hot reload disabled")
		} else {
			defer stop()
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}

		timeout := srv.Config().Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error(shutdownCtx, shutdownErr, "Error during server shutdown")
		}
		cancel()
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Contact form available at http://%s\n", cfg.Address())

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server on %s: %w", cfg.Address(), err)
	}

	// Start returns once the listener closes; wait for the shutdown to finish
	// tearing down sessions when it was signal driven.
	select {
	case <-shutdownDone:
	case <-ctx.Done():
	}
	return nil
}

// watchConfigFile reloads the config file on change and hands the result to
// the server. Invalid edits are logged and the running configuration kept.
func watchConfigFile(ctx context.Context, srv *server.Server, logger logging.Logger) (func(), error) {
	path := configFileUsed()
	if path == "" {
		return nil, fmt.Errorf("no config file to watch")
	}

	fw, err := watcher.NewFileWatcher(configReloadDelay, logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(watcher.NoSwapFilter)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		return reloadConfig(ctx, viper.GetViper(), srv, logger)
	})

	if err := fw.WatchFile(path); err != nil {
		_ = fw.Stop()
		return nil, err
	}
	fw.Start(ctx)

	logger.Info(ctx, "Watching config file", "path", path)
	return func() { _ = fw.Stop() }, nil
}

func reloadConfig(ctx context.Context, v *viper.Viper, srv *server.Server, logger logging.Logger) error {
	if err := v.ReadInConfig(); err != nil {
		logger.Warn(ctx, err, "Config reload failed, keeping current configuration")
		return err
	}
	cfg, err := config.LoadFrom(v)
	if err != nil {
		logger.Warn(ctx, err, "Reloaded config is invalid, keeping current configuration")
		return err
	}
	srv.ApplyConfig(cfg)
	return nil
}
