package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dontdude/tiobot/internal/config"
	"github.com/dontdude/tiobot/internal/domain"
	"github.com/dontdude/tiobot/internal/platform/queue"
	"github.com/dontdude/tiobot/internal/platform/web"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := queue.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer rdb.Close()

	q := queue.NewRedisQueue(rdb, queue.Options{
		Stream:         cfg.Stream,
		Group:          cfg.Group,
		ResultsChannel: cfg.ResultsChannel,
	})

	hub := web.NewHub()
	limiter := web.NewRateLimiter(cfg.RateLimitCalls, cfg.RateLimitWindow)
	defer limiter.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           enableCORS(newMux(q, hub, limiter)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	results, err := q.SubscribeResults(gctx)
	if err != nil {
		return err
	}

	g.Go(func() error {
		hub.Run(results)
		return nil
	})

	g.Go(func() error {
		slog.Info("API server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newMux(q domain.JobQueue, hub *web.Hub, limiter *web.RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	// POST /api/eval -> enqueue an invocation (rate limited per user)
	mux.HandleFunc("POST /api/eval", limiter.RateLimitMiddleware(handleSubmit(q)))

	// GET /api/ws -> websocket that receives the rendered response
	mux.HandleFunc("GET /api/ws", hub.ServeWS)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// handleSubmit decodes an invocation and publishes it as a job.
func handleSubmit(q domain.JobQueue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var inv domain.Invocation
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&inv); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		// The header already passed the rate limiter; it is the only trusted identity.
		inv.UserID = r.Header.Get(web.UserHeader)
		if strings.TrimSpace(inv.Language) == "" && strings.TrimSpace(inv.Code) == "" && len(inv.Attachments) == 0 {
			http.Error(w, "language and code are required", http.StatusBadRequest)
			return
		}
		if inv.ID == "" {
			inv.ID = uuid.NewString()
		}

		job := domain.Job{ID: uuid.NewString(), Invocation: inv}

		slog.Info("Received invocation", "jobID", job.ID, "userID", inv.UserID, "language", inv.Language)
		if err := q.Publish(r.Context(), job); err != nil {
			slog.Error("Failed to publish job", "jobID", job.ID, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"job_id": job.ID,
			"status": "queued",
		})
	}
}

// enableCORS adds the headers browser-based chat adapters need.
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+web.UserHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
