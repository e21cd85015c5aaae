package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/agenda/internal/api"
	"github.com/clinicore/agenda/internal/config"
	"github.com/clinicore/agenda/internal/db"
	redisclient "github.com/clinicore/agenda/internal/redis"
	"github.com/clinicore/agenda/internal/schedule"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s store=%s", cfg.Env, cfg.HTTPPort, cfg.StoreDriver)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		repo   schedule.Repository
		locker redisclient.Locker
		events schedule.Publisher
		pgPool *pgxpool.Pool
		rdb    *redis.Client
	)

	if cfg.StoreDriver == config.StorePostgres {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		rdb, err = redisclient.NewRedisClient(cfg)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		repo = schedule.NewPgRepository(pgPool)
		locker = redisclient.NewRedisResourceLocker(rdb, cfg.LockTTL)
		events = redisclient.NewEventPublisher(rdb, cfg.EventsChannel)
	} else {
		// Memory store: single process, in-process locks, no event channel
		repo = schedule.NewMemoryRepository()
		locker = schedule.NewLocalLocker()
		log.Println("using in-memory store")
	}

	svc := schedule.NewService(repo, locker, cfg, events)

	router := api.NewRouter(api.RouterConfig{
		Service: svc,
		Repo:    repo,
		PgPool:  pgPool,
		Redis:   rdb,
		Env:     cfg.Env,
		Version: version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}
}
