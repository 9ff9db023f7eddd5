package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest-platform-service/internal/app"
	"contest-platform-service/internal/config"
	"contest-platform-service/internal/domain"
	"contest-platform-service/internal/infra/memory"
	pginfra "contest-platform-service/internal/infra/postgres"
	redisinfra "contest-platform-service/internal/infra/redis"
	transport "contest-platform-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the contest service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	contests, questions := sampleCatalog()
	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(contests, questions)
	if pool != nil {
		loader = pginfra.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.Catalog
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalog(loader, catalogTTL)
	}

	var ledger app.Ledger
	if redisClient != nil {
		ledger = redisinfra.NewLedgerStore(redisClient)
	} else {
		ledger = memory.NewLedgerStore()
	}

	var directory app.Directory = memory.NewStaticDirectory(nil)
	if pool != nil {
		directory = pginfra.NewDirectory(pool)
	}

	feed := app.NewFeed()
	service := app.NewService(ledger, catalog, directory, feed)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting contest service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog provides minimal contest data for running without Postgres.
func sampleCatalog() (map[string]domain.Contest, map[string][]domain.Question) {
	contests := map[string]domain.Contest{
		"contest-1": {
			ID:         "contest-1",
			Name:       "General Knowledge Sprint",
			AccessTier: domain.TierNormal,
			PrizeTitle: "Gift Card",
		},
	}
	questions := map[string][]domain.Question{
		"contest-1": {
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Kind:   domain.KindSingle,
				Options: []domain.Option{
					{ID: "o1", Label: "3", Correct: false},
					{ID: "o2", Label: "4", Correct: true},
					{ID: "o3", Label: "5", Correct: false},
				},
			},
			{
				ID:     "q2",
				Prompt: "Select the prime numbers",
				Kind:   domain.KindMulti,
				Options: []domain.Option{
					{ID: "a", Label: "2", Correct: true},
					{ID: "b", Label: "3", Correct: true},
					{ID: "c", Label: "4", Correct: false},
				},
			},
			{
				ID:     "q3",
				Prompt: "The sun is a star",
				Kind:   domain.KindBoolean,
				Options: []domain.Option{
					{ID: "True", Label: "True", Correct: true},
					{ID: "False", Label: "False", Correct: false},
				},
			},
		},
	}
	return contests, questions
}
