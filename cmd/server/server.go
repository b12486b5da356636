package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/chatcore/internal/attach"
	"github.com/thereayou/chatcore/internal/chat"
	"github.com/thereayou/chatcore/internal/config"
	"github.com/thereayou/chatcore/internal/database"
	"github.com/thereayou/chatcore/internal/fanout"
	"github.com/thereayou/chatcore/internal/handlers"
	"github.com/thereayou/chatcore/internal/transport"
	"github.com/thereayou/chatcore/pkg/auth"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
	DB     *database.Database
	Redis  *redis.Client
	Hub    *transport.Hub
}

func NewServer() *Server {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	// Реестр сущностей, к которым привязываются комнаты
	registry := attach.NewRegistry("event", "video")

	// Транспорт выбирается конфигурацией, а не глобальным состоянием:
	// push через websocket-hub либо пассивный polling по журналу
	var (
		hub     *transport.Hub
		gateway fanout.Gateway
	)
	if cfg.Transport == config.TransportWebsocket {
		hub = transport.NewHub(dbConn, cfg.UpdatesPageSize)
		go hub.Run()
		gateway = hub
	} else {
		gateway = transport.PollingGateway{}
	}

	notifier := fanout.New(gateway, rdb, cfg.TokenTTL)

	store := chat.NewStore(dbConn, notifier, registry)
	memberships := chat.NewMemberships(dbConn, notifier)
	lifecycle := chat.NewLifecycle(dbConn, notifier)

	poller := transport.NewPoller(dbConn, cfg.UpdatesPageSize)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	userH := handlers.NewUserHandler(dbConn)
	chatH := handlers.NewChatHandler(dbConn, store, memberships, notifier)
	messageH := handlers.NewMessageHandler(lifecycle)
	updatesH := handlers.NewUpdatesHandler(poller, cfg.PollInterval)

	var wsH *handlers.WebSocketHandler
	if hub != nil {
		wsH = handlers.NewWebSocketHandler(hub)
	}

	router := gin.Default()
	APIEndpoints(router, jwtMgr, rdb, authH, userH, chatH, messageH, updatesH, wsH)

	return &Server{
		Config: cfg,
		Router: router,
		DB:     dbConn,
		Redis:  rdb,
		Hub:    hub,
	}
}

// Run обслуживает HTTP до SIGINT/SIGTERM, затем гасит сервер,
// hub и соединения
func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.Port,
		Handler: s.Router,
	}

	go func() {
		log.Printf("Server starting on port %s (transport: %s)", s.Config.Port, s.Config.Transport)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server run error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	s.Shutdown()
}

func (s *Server) Shutdown() {
	if s.Hub != nil {
		s.Hub.Stop()
	}

	if err := s.Redis.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
}
