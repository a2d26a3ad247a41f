package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gridwire-dev/gridwire/pkg/broadcast"
	"github.com/gridwire-dev/gridwire/pkg/catalog"
)

func serveCmd() *cobra.Command {
	var (
		addr     string
		dataset  string
		s3Bucket string
		s3Key    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reference grid backend",
		Long: `Serve the dataset over the grid request contract.

Routes:
  GET /api/vehicles   one page of rows ({"rows": [...], "total": n})
  GET /ws             WebSocket event broadcast
  GET /metrics        Prometheus metrics
  GET /healthz        liveness probe`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			rows, err := loadDataset(cmd.Context(), dataset, s3Bucket, s3Key)
			if err != nil {
				return err
			}
			logger.Info("dataset loaded", "rows", len(rows))

			store := catalog.NewStore(rows)
			hub := broadcast.NewHub(broadcast.WithLogger(logger))
			defer hub.Close()

			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.RealIP)
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)

			r.Mount("/api", catalog.NewAPI(store, logger).Router())
			r.Handle("/ws", hub)
			r.Handle("/metrics", promhttp.Handler())
			r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})

			return runServer(cmd.Context(), logger, addr, r)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "Listen address")
	cmd.Flags().StringVarP(&dataset, "dataset", "d", "", "Path to a JSON dataset file")
	cmd.Flags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket holding the dataset")
	cmd.Flags().StringVar(&s3Key, "s3-key", "", "S3 object key of the dataset")

	return cmd
}

// loadDataset reads rows from S3 when a bucket is configured, otherwise
// from a local file.
func loadDataset(ctx context.Context, path, s3Bucket, s3Key string) ([]map[string]any, error) {
	if s3Bucket != "" {
		client, err := catalog.NewS3Client(ctx)
		if err != nil {
			return nil, err
		}
		return catalog.LoadS3(ctx, client, s3Bucket, s3Key)
	}
	if path == "" {
		return nil, fmt.Errorf("either --dataset or --s3-bucket is required")
	}
	return catalog.LoadFile(path)
}

// runServer runs the HTTP server until SIGINT/SIGTERM, then drains.
func runServer(ctx context.Context, logger *slog.Logger, addr string, handler http.Handler) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
