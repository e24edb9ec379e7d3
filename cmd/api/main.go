package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kidcoms-platform/internal/audit"
	"kidcoms-platform/internal/auth"
	"kidcoms-platform/internal/chat"
	"kidcoms-platform/internal/config"
	"kidcoms-platform/internal/httpapi"
	"kidcoms-platform/internal/permissions"
	"kidcoms-platform/internal/sessions"
	"kidcoms-platform/internal/transport"
	"kidcoms-platform/pkg/logger"
	"kidcoms-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	h := buildHandlers(cfg, authManager, db, rdb)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// buildHandlers wires repositories, providers and services. All persistence
// is Postgres; the ring registry lives in Redis so invitation timeout is a
// key TTL rather than a sweeper.
func buildHandlers(cfg config.Config, authManager *auth.Manager, db *sql.DB, rdb *redis.Client) httpapi.Handlers {
	auditSvc := audit.NewService(audit.NewPostgresRepo(db))

	permSvc := permissions.NewService(permissions.NewPostgresRepo(db))

	rooms := transport.NewDailyProvider(cfg.Rooms)
	ring := sessions.NewRedisRing(rdb, cfg.Signal.RingTTL)
	sessionSvc := sessions.NewService(sessions.NewPostgresRepo(db), ring, rooms, permSvc, auditSvc)

	moderator := chat.NewARIAClient(cfg.ARIA)
	chatSvc := chat.NewService(chat.NewPostgresRepo(db), moderator, auditSvc,
		func(ctx context.Context, sessionID string) (string, error) {
			s, err := sessionSvc.Get(ctx, sessionID)
			if err != nil {
				return "", err
			}
			return s.FamilyFileID, nil
		})

	return httpapi.Handlers{
		Auth:     authManager,
		Sessions: sessionSvc,
		Chat:     chatSvc,
		Perms:    permSvc,
		Audit:    auditSvc,
	}
}
