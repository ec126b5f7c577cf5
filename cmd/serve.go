package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revdash/internal/api"
	"github.com/joescharf/revdash/internal/daemon"
	webui "github.com/joescharf/revdash/internal/ui"
)

const (
	serveShutdownTimeout = 5 * time.Second
	serveStopTimeout     = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and web dashboard",
	Long: `Start an HTTP server that exposes the REST API under /api and serves the
embedded dashboard on /. By default it listens on port 8000. Use --port to
change it, or "revdash serve start" to run it in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(serveStartCmd, serveStopCmd, serveStatusCmd)

	serveCmd.PersistentFlags().IntP("port", "p", 8000, "port to listen on")
	serveCmd.PersistentFlags().String("cors-origin", "*", "allowed CORS origin")
	_ = viper.BindPFlag("port", serveCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag("server.cors_origin", serveCmd.PersistentFlags().Lookup("cors-origin"))
}

// pidFile returns the PID file tracking the background server.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "revdash-serve.pid"))
}

// serveLogPath returns where the background server writes its output.
func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "revdash-serve.log")
}

func serveAddr() string {
	return fmt.Sprintf(":%d", viper.GetInt("port"))
}

// newServeHandler mounts the API and the dashboard on one mux.
func newServeHandler() (http.Handler, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	var fetcher api.CommentFetcher
	if ghc := githubClient(); ghc != nil {
		fetcher = ghc
	} else {
		slog.Warn("no GitHub token configured; comment lookups are disabled")
	}

	apiHandler := api.NewServer(s, fetcher, viper.GetString("server.cors_origin")).Router()
	uiHandler, err := webui.Handler(webui.Config{APIURL: "/api", Days: viper.GetInt("scrape.days")})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize UI handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/health", apiHandler)
	mux.Handle("/", uiHandler)
	return mux, nil
}

func serveRun(ctx context.Context) error {
	ctx = ctxOrBackground(ctx)
	handler, err := newServeHandler()
	if err != nil {
		return err
	}

	addr := serveAddr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ui.Info("Serving revdash at http://localhost%s", addr)
	slog.Info("server started", "addr", addr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	// Clean up the PID file if it belongs to this process.
	pf := pidFile()
	if pid, err := pf.Read(); err == nil && pid == os.Getpid() {
		_ = pf.Remove()
	}
	return nil
}

func serveStartRun() error {
	pf := pidFile()
	if pid, running := pf.IsRunning(); running {
		return fmt.Errorf("revdash server already running (PID %d)", pid)
	}

	if dryRun {
		ui.DryRunMsg("Would start revdash server on %s", serveAddr())
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(pf.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	logFile, err := os.OpenFile(serveLogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	args := []string{"serve", "--port", fmt.Sprint(viper.GetInt("port"))}
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	addr := serveAddr()
	if err := pf.WriteRecord(child.Process.Pid, addr); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	_ = child.Process.Release()

	ui.Success("Started revdash server (PID %d) at http://localhost%s", child.Process.Pid, addr)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}

func serveStopRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return fmt.Errorf("revdash server is not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop revdash server (PID %d)", pid)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal server: %w", err)
	}

	if !pf.WaitExit(serveStopTimeout, 100*time.Millisecond) {
		ui.Warning("Server did not exit within %s, killing", serveStopTimeout)
		if err := pf.Signal(sigKILL()); err != nil {
			return fmt.Errorf("kill server: %w", err)
		}
	}

	if err := pf.Remove(); err != nil {
		return fmt.Errorf("remove PID file: %w", err)
	}
	ui.Success("Stopped revdash server (PID %d)", pid)
	return nil
}

func serveStatusRun() error {
	pf := pidFile()
	pid, running := pf.IsRunning()
	if !running {
		ui.Info("revdash server is not running")
		return nil
	}

	addr := pf.Addr()
	if addr == "" {
		addr = serveAddr()
	}
	ui.Success("revdash server is running (PID %d) at http://localhost%s", pid, addr)
	ui.Info("Logs: %s", serveLogPath())
	return nil
}
