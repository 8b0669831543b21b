package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/api"
	"github.com/joescharf/revu/internal/config"
	"github.com/joescharf/revu/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review HTTP API",
	Long: `Start an HTTP server exposing the review API.

  GET  /healthz
  POST /api/v1/reviews        {"owner","repo","number"}
  POST /api/v1/reviews/files  {"files":[{"filename","content"}]}

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("serve.port", serveCmd.Flags().Lookup("port"))
	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the PID file tracking the server.
func pidFile() *daemon.PIDFile {
	dir, err := configDirFunc()
	if err != nil {
		dir = "."
	}
	return daemon.NewPIDFile(filepath.Join(dir, "revu-serve.pid"))
}

func serveRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(contextOrBackground(ctx), shutdownSignals()...)
	defer stop()

	svc, closeFn, err := newService(ctx, config.ModeServe)
	if err != nil {
		return err
	}
	defer closeFn()

	pf := pidFile()
	if err := pf.Acquire(); err != nil {
		return err
	}
	defer func() { _ = pf.Release() }()

	addr := fmt.Sprintf(":%d", viper.GetInt("serve.port"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(svc, logger, buildVersion).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	ui.Success("Serving review API at http://localhost%s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	ui.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serveStatusRun() error {
	pid, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server is running (pid %d)", pid)
	return nil
}

func serveStopRun() error {
	if err := pidFile().Stop(10 * time.Second); err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return fmt.Errorf("server is not running")
		}
		return err
	}
	ui.Success("Server stopped")
	return nil
}
