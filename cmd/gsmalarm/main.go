package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"gsmalarm/internal/alarm"
	"gsmalarm/internal/api"
	"gsmalarm/internal/cache"
	"gsmalarm/internal/call"
	"gsmalarm/internal/client"
	"gsmalarm/internal/config"
	"gsmalarm/internal/modem"
	"gsmalarm/internal/repo"
	"gsmalarm/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// envFile picks the dotenv file for the host platform.
func envFile() (string, error) {
	switch runtime.GOOS {
	case "windows":
		return "config/win/.env", nil
	case "linux":
		return "config/nix/.env", nil
	default:
		return "", fmt.Errorf("unknown system: %s", runtime.GOOS)
	}
}

func run() error {
	path, err := envFile()
	if err != nil {
		return err
	}
	_ = godotenv.Load(path)

	cfg, err := config.LoadAll()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("connecting to the database")
	db, err := sql.Open("pgx", cfg.Database.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := repo.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	schedules := repo.NewPostgresScheduleRepo(db)

	var dedup cache.DedupGuard = cache.AlwaysFirst{}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		dedup = cache.NewRedisDedup(rdb, cfg.Redis.TTL)
	}

	slog.Info("initializing modem", "port", cfg.Modem.Port, "baud", cfg.Modem.BaudRate)
	gsm, err := modem.Connect(modem.Config{
		Port:     cfg.Modem.Port,
		BaudRate: cfg.Modem.BaudRate,
		PIN:      cfg.Modem.PIN,
		SMSC:     cfg.Modem.SMSC,
	})
	if err != nil {
		return fmt.Errorf("modem connect: %w", err)
	}
	defer gsm.Close()

	svc := alarm.New(gsm, schedules, dedup, call.NewSession(gsm))
	if cfg.Webhook.Enabled {
		svc = svc.WithNotifier(client.NewWebhookClient(cfg.Webhook.URL))
	}

	sched, err := scheduler.New(cfg.Scheduler.Interval, svc.Tick)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.Router(api.NewHandler(sched, schedules)),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "err", err)
		}
	}()

	slog.Info("waiting for sms messages", "interval", cfg.Scheduler.Interval.String())
	<-ctx.Done()
	slog.Info("interrupt received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
