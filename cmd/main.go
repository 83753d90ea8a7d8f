package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/chat"
	"github.com/cwrk-planet/chat-service/internal/history"
	"github.com/cwrk-planet/chat-service/internal/logger"
	"github.com/cwrk-planet/chat-service/internal/memory"
	"github.com/cwrk-planet/chat-service/internal/pg"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/presence"
	"github.com/cwrk-planet/chat-service/internal/security"
	"github.com/cwrk-planet/chat-service/internal/service"
	grpcx "github.com/cwrk-planet/chat-service/internal/transport/grpc"
	httpx "github.com/cwrk-planet/chat-service/internal/transport/http"
	"github.com/cwrk-planet/chat-service/internal/transport/ws"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		Level:     logger.ParseLevel(cfg.Logging.Level),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting chat-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("chat-service failed", "err", err)
		os.Exit(1)
	}
	slog.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// --- directory ---
	var (
		roomRepo service.RoomRepository
		userRepo service.UserRepository
		pool     *pgxpool.Pool
	)
	if cfg.Postgres.Enabled() {
		var err error
		pool, err = pg.NewPool(ctx, cfg.Postgres.ToPGConfig())
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		roomRepo = postgres.NewRoomRepository(pool)
		userRepo = postgres.NewUserRepository(pool)
		slog.Info("room directory: postgres")
	} else {
		dir := memory.NewDirectory()
		roomRepo, userRepo = dir.Rooms(), dir.Users()
		slog.Warn("room directory: in-memory, rooms and users are lost on restart")
	}

	// --- security ---
	signer, err := newSigner(cfg.Security.JWT)
	if err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	cost := cfg.Security.Password.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	// --- history ---
	store, err := newHistoryStore(ctx, cfg.Chat.History, pool)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("history close failed", "err", err)
		}
	}()

	// --- services ---
	roomSvc := service.NewRoomService(roomRepo, userRepo, cfg.Chat.AdminUsername)
	authSvc := service.NewAuthService(userRepo, signer, cfg.Security.JWT.AccessTTL, security.BcryptConfig{
		Cost:      cost,
		MinLength: cfg.Security.Password.MinLength,
	}, nil)

	// --- realtime core ---
	reg := presence.NewRegistry(nil)
	hub := chat.NewHub(logger.L().With("component", "chat.hub"))
	router := chat.NewRouter(hub, reg, store, roomSvc,
		chat.WithLogger(logger.L().With("component", "chat.router")),
		chat.WithEvictOnDelete(cfg.Chat.Evict()),
		chat.WithMaxMessageLen(cfg.Chat.MaxMessageLen),
		chat.WithEventTimeout(cfg.Chat.EventTimeout),
	)
	wsServer := ws.NewServer(router, signer, ws.Config{
		PingEvery:      cfg.Chat.WS.PingEvery,
		WriteWait:      cfg.Chat.WS.WriteTimeout,
		SendBuffer:     cfg.Chat.WS.SendBuffer,
		ReadLimit:      cfg.Chat.WS.MaxMessageSize,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, logger.L().With("component", "ws"))

	// --- HTTP ---
	handler := httpx.NewRouter(httpx.Deps{
		Auth:           authSvc,
		Colors:         reg.Colors(),
		Rooms:          roomSvc,
		Deleter:        router,
		Tokens:         signer,
		WS:             wsServer.HandleWS,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
	httpSrv := httpx.NewServer(httpx.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, handler)
	httpSrv.RegisterOnShutdown(hub.CloseAll)

	// --- run both servers ---
	errCh := make(chan error, 2)
	done := make(chan struct{}, 2)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.Run(ctx); err != nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
		done <- struct{}{}
	}()

	servers := 1
	if cfg.GRPC.Addr != "" {
		servers++
		grpcSrv := grpcx.NewGRPCServer(
			grpcx.NewServer(signer, roomSvc, router, reg, hub),
			logger.L().With("component", "grpc"),
			cfg.GRPC.CallTimeout,
		)
		go func() {
			slog.Info("grpc listen", "addr", cfg.GRPC.Addr)
			if err := grpcx.Serve(ctx, grpcSrv, cfg.GRPC.Addr); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
			done <- struct{}{}
		}()
	}

	// --- graceful shutdown ---
	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case runErr = <-errCh:
		slog.Error("server error", "err", runErr)
		cancel()
	}
	for i := 0; i < servers; i++ {
		<-done
	}
	return runErr
}

func newSigner(cfg config.JWT) (*security.JWTSigner, error) {
	if cfg.GenerateKeys {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		slog.Warn("jwt: using a generated key pair, tokens are invalidated on restart")
		return security.NewJWTSigner(key, &key.PublicKey, cfg.Issuer, cfg.Audience, cfg.AccessTTL, cfg.ClockSkew), nil
	}
	priv, err := security.LoadRSAPrivateKeyFromPEM(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := security.LoadRSAPublicKeyFromPEM(cfg.PublicKeyPath)
	if err != nil {
		return nil, err
	}
	return security.NewJWTSigner(priv, pub, cfg.Issuer, cfg.Audience, cfg.AccessTTL, cfg.ClockSkew), nil
}

func newHistoryStore(ctx context.Context, cfg config.History, pool *pgxpool.Pool) (history.Store, error) {
	switch cfg.Backend {
	case config.HistoryPostgres:
		slog.Info("history: postgres")
		return postgres.NewHistoryRepository(pool, nil), nil
	case config.HistoryRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, err
		}
		slog.Info("history: redis", "addr", cfg.Redis.Addr)
		return history.NewRedisStore(rdb), nil
	default:
		slog.Info("history: files", "dir", cfg.Dir)
		return history.NewFileStore(cfg.Dir)
	}
}
