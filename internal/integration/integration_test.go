package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"contest-platform-service/internal/app"
	"contest-platform-service/internal/domain"
	pginfra "contest-platform-service/internal/infra/postgres"
	pgmigrations "contest-platform-service/internal/infra/postgres/migrations"
	redisinfra "contest-platform-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestParticipationEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	loader := pginfra.NewCatalogLoader(pool)
	catalog := redisinfra.NewCatalog(redisClient, loader, 5*time.Minute)
	ledger := redisinfra.NewLedgerStore(redisClient)
	directory := pginfra.NewDirectory(pool)
	service := app.NewService(ledger, catalog, directory, app.NewFeed())

	alice := domain.Principal{UserID: "u1", Role: domain.RoleUser}
	bob := domain.Principal{UserID: "u2", Role: domain.RoleUser}

	if err := service.Join(ctx, alice, "contest-1"); err != nil {
		t.Fatalf("join: %v", err)
	}

	p, err := service.Submit(ctx, alice, "contest-1", domain.AnswerSet{"q1": {"o2"}, "q2": {"a", "b"}})
	if err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if p.Score != 1 {
		t.Fatalf("alice score: got %d, want 1", p.Score)
	}

	if _, err := service.Submit(ctx, bob, "contest-1", domain.AnswerSet{"q1": {"o1"}, "q2": {"a", "b"}}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	if _, err := service.Submit(ctx, alice, "contest-1", domain.AnswerSet{"q1": {"o1"}}); err != domain.ErrAlreadySubmitted {
		t.Fatalf("duplicate submit: got %v, want ErrAlreadySubmitted", err)
	}

	lb, err := service.Leaderboard(ctx, "contest-1")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb.Entries) != 2 || lb.Entries[0].UserID != "u2" || lb.Entries[0].Score != 2 {
		t.Fatalf("expected bob leading with 2, got %+v", lb.Entries)
	}
	if lb.Entries[0].DisplayName != "Bob Builder" {
		t.Fatalf("directory lookup failed: %+v", lb.Entries[0])
	}

	prizes, err := service.PrizesForUser(ctx, "u2")
	if err != nil {
		t.Fatalf("prizes: %v", err)
	}
	if len(prizes) != 1 || prizes[0].PrizeTitle != "Gift Card" {
		t.Fatalf("expected gift card for bob, got %+v", prizes)
	}

	if err := service.PurgeContest(ctx, "contest-1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	lb, err = service.Leaderboard(ctx, "contest-1")
	if err != nil {
		t.Fatalf("leaderboard after purge: %v", err)
	}
	if len(lb.Entries) != 0 {
		t.Fatalf("expected empty board after purge, got %+v", lb.Entries)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "contest", "POSTGRES_PASSWORD": "contestpass", "POSTGRES_DB": "contestdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://contest:contestpass@%s:%s/contestdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	statements := []string{
		`INSERT INTO contests (id, name, access_level, prize_title) VALUES ('contest-1', 'General Knowledge', 'normal', 'Gift Card')`,
		`INSERT INTO questions (id, contest_id, prompt, type) VALUES ('q1', 'contest-1', 'What is 2 + 2?', 'single')`,
		`INSERT INTO questions (id, contest_id, prompt, type) VALUES ('q2', 'contest-1', 'Select the primes', 'multi')`,
		`INSERT INTO options (id, question_id, label, is_correct) VALUES ('o1', 'q1', '4', TRUE)`,
		`INSERT INTO options (id, question_id, label, is_correct) VALUES ('o2', 'q1', '5', FALSE)`,
		`INSERT INTO options (id, question_id, label, is_correct) VALUES ('a', 'q2', '2', TRUE)`,
		`INSERT INTO options (id, question_id, label, is_correct) VALUES ('b', 'q2', '3', TRUE)`,
		`INSERT INTO options (id, question_id, label, is_correct) VALUES ('c', 'q2', '4', FALSE)`,
		`INSERT INTO users (id, email, first_name, last_name, role) VALUES ('u1', 'alice@example.com', 'Alice', 'Anders', 'user')`,
		`INSERT INTO users (id, email, first_name, last_name, role) VALUES ('u2', 'bob@example.com', 'Bob', 'Builder', 'user')`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
