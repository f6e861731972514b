package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/assistant"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/retention"
	"github.com/kalambet/folio/internal/storage"
)

const (
	shutdownTimeout   = 10 * time.Second
	retentionInterval = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the site API (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		return runServer(host)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show folio status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().String("host", "127.0.0.1", "interface to listen on")
}

func runServer(host string) error {
	fmt.Fprintf(stderr, "folio version %s\n", version)

	a, err := loadApp(os.Stderr)
	if err != nil {
		return err
	}
	cfg := a.cfg

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("closing storage", "error", err)
		}
	}()

	asst := assistant.New(a.gemini, a.snapshot, assistant.WithRecorder(assistant.NewStoreRecorder(store)))

	if cfg.Server.AdminToken == "" {
		a.logger.Info("admin routes disabled; set server.admin_token to enable them")
	}

	handler := api.NewHandler(api.Deps{
		Assistant:  asst,
		Profile:    a.snapshot,
		ResumePath: cfg.Profile.ResumePDF,
		Store:      store,
		AdminToken: cfg.Server.AdminToken,
		Logger:     a.logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", cfg.Server.Port))
	srv := newHTTPServer(addr, handler)

	worker := retention.NewWorker(store, cfg.Storage.Retention, retentionInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("folio listening", "addr", addr, "model", a.gemini.Model(), "resume", a.snapshot.HasResume())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		return shutdownServer(srv, shutdownTimeout)
	})
	g.Go(func() error {
		return worker.Run(gctx)
	})

	return g.Wait()
}

// newHTTPServer builds the site server. Request contexts are not tied to the
// signal context, so replies already being generated can finish while
// Shutdown drains.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Long enough for a fully retried inference call.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
}

// shutdownServer waits up to timeout for in-flight requests, then closes
// whatever is left.
func shutdownServer(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		srv.Close()
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.Gemini.Model)
	if cfg.MissingAPIKey() {
		printStatus("API key", "%s", colorize(colorYellow, "missing (assistant replies offline)"))
	} else {
		printStatus("API key", "configured")
	}
	profileSrc := cfg.Profile.Path
	if profileSrc == "" {
		profileSrc = "built-in"
	}
	printStatus("Profile", "%s", profileSrc)
	if cfg.Profile.ResumePDF != "" {
		printStatus("Resume", "%s", cfg.Profile.ResumePDF)
	}

	if running && cfg.Server.AdminToken != "" {
		c := &apiClient{baseURL: serverURL, token: cfg.Server.AdminToken, httpClient: client}
		if stats, err := fetchStats(context.Background(), c); err == nil {
			for _, s := range stats {
				printStatus(fmt.Sprintf("%s/%s", s.Kind, s.Status), "%d (avg %.1f attempts, %.0fms)", s.Count, s.AvgAttempts, s.AvgDurationMs)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Retention", "%s", cfg.Storage.Retention)
	return nil
}

type statRow struct {
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	Count         int     `json:"count"`
	AvgAttempts   float64 `json:"avg_attempts"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

func fetchStats(ctx context.Context, c *apiClient) ([]statRow, error) {
	resp, err := c.get(ctx, "/api/admin/stats")
	if err != nil {
		return nil, err
	}
	var stats []statRow
	if err := decodeJSON(resp, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}
