package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/cadence/internal/api"
	"github.com/joescharf/cadence/internal/content"
	webui "github.com/joescharf/cadence/internal/ui"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API and board dashboard",
	Long: `Start an HTTP server with the JSON API under /api/v1, Prometheus
metrics at /metrics and the board dashboard at /.

Requests identify the user with the X-User-ID header; the dashboard
sends the configured user.id. By default it listens on port 8080.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
		defer stop()
		return serveRun(ctx, fmt.Sprintf(":%d", viper.GetInt("port")))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

// serveHandler mounts the API next to the embedded dashboard.
func serveHandler(svc *content.Service) (http.Handler, error) {
	var enricher api.Enricher
	if c := newLLMClient(); c != nil {
		enricher = c
	} else {
		logger.Info("anthropic.api_key not set; enrichment disabled")
	}
	apiHandler := api.NewServer(svc, enricher, logger).Router()

	static, err := webui.Handler(viper.GetString("user.id"))
	if err != nil {
		return nil, fmt.Errorf("initialize UI handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/healthz", apiHandler)
	mux.Handle("/", static)
	return mux, nil
}

// serveRun serves until ctx is cancelled, then drains in-flight requests.
func serveRun(ctx context.Context, addr string) error {
	svc, err := getService()
	if err != nil {
		return err
	}

	unsubscribe := svc.Subscribe(func(ev content.ChangeEvent) {
		logger.Debug("content changed",
			"kind", ev.Kind,
			"user_id", ev.UserID,
			"item_id", ev.ItemID,
			"status", ev.Status,
		)
	})
	defer unsubscribe()

	handler, err := serveHandler(svc)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("serving", "addr", ln.Addr().String(), "user_id", viper.GetString("user.id"))
	ui.Success("Serving dashboard at http://%s", displayAddr(ln.Addr()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func displayAddr(a net.Addr) string {
	if tcp, ok := a.(*net.TCPAddr); ok && tcp.IP.IsUnspecified() {
		return fmt.Sprintf("localhost:%d", tcp.Port)
	}
	return a.String()
}
