package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitroom/internal/config"
	"github.com/mmynk/splitroom/internal/middleware"
	"github.com/mmynk/splitroom/internal/models"
	"github.com/mmynk/splitroom/internal/receipt"
	"github.com/mmynk/splitroom/internal/service"
	"github.com/mmynk/splitroom/internal/storage/sqlite"
	"github.com/mmynk/splitroom/pkg/logging"
	"github.com/mmynk/splitroom/pkg/roomapi"
)

func main() {
	cfg, err := config.LoadServer(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Setup structured logging
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var parser receipt.Parser
	if cfg.ParserURL != "" {
		parser = receipt.NewHTTPParser(cfg.ParserURL, cfg.ParserAPIKey, time.Duration(cfg.ParserTimeout))
		slog.Info("Receipt parser configured", "url", cfg.ParserURL)
	} else {
		parser = receipt.ParserFunc(func(ctx context.Context, image []byte, contentType string) (*models.Receipt, error) {
			return nil, fmt.Errorf("no OCR endpoint configured: %w", receipt.ErrParseFailed)
		})
		slog.Warn("No receipt parser configured; uploads will fail")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	svc := service.NewRoomService(store, parser,
		service.WithDefaultCurrency(cfg.Currency),
		service.WithMaxImageDimension(cfg.MaxImageDimension),
		service.WithToggleRecorder(metrics),
	)

	mux := http.NewServeMux()

	// Register Connect service
	path, handler := roomapi.NewRoomServiceHandler(svc,
		connect.WithInterceptors(
			middleware.ParticipantFromHeader(),
			metrics.Interceptor(),
			middleware.LoggingInterceptor(),
		),
		connect.WithReadMaxBytes(2*receipt.MaxImageSize),
	)
	mux.Handle(path, handler)

	if cfg.MetricsPath != "" {
		mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		slog.Info("Serving metrics", "path", cfg.MetricsPath)
	}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Add logging and CORS middleware
	loggedHandler := loggingMiddleware(corsMiddleware(mux))

	// Wrap with h2c for HTTP/2 without TLS (required for Connect)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(loggedHandler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Connect server starting", "address", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms, "+middleware.ParticipantHeader)
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
