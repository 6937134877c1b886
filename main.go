package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/guildbank/api/rest"
	"github.com/kasuganosora/guildbank/api/sse"
	apows "github.com/kasuganosora/guildbank/api/ws"
	"github.com/kasuganosora/guildbank/audit"
	"github.com/kasuganosora/guildbank/cache"
	"github.com/kasuganosora/guildbank/config"
	dbadapter "github.com/kasuganosora/guildbank/db"
	"github.com/kasuganosora/guildbank/game/guild"
	"github.com/kasuganosora/guildbank/game/item"
	"github.com/kasuganosora/guildbank/game/player"
	mw "github.com/kasuganosora/guildbank/middleware"
	"github.com/kasuganosora/guildbank/model"
	"github.com/kasuganosora/guildbank/notify"
	"github.com/kasuganosora/guildbank/scheduler"
	"github.com/kasuganosora/guildbank/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	node := cfg.Server.NodeName
	if node == "" {
		if node, err = os.Hostname(); err != nil {
			node = "guildbank"
		}
	}
	logger = logger.With(zap.String("node", node))

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, audit.Config{}, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		NATSURL:         cfg.Cache.NATSURL,
		NodeName:        node,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Guild Service ----
	store := storage.NewGormStore(db, logger)
	chars := storage.NewCharacters(db)
	guildCfg := guild.ConfigFrom(cfg.Guild)

	guids := item.NewGUIDGenerator(cfg.Guild.ItemGUIDStart, cfg.Guild.ItemGUIDMax)
	maxGUID, err := store.MaxItemGUID(ctx)
	if err != nil {
		log.Fatalf("item guid: %v", err)
	}
	guids.Observe(maxGUID)
	invs := item.NewRegistry(storage.InventoryLoader(db, cfg.Guild.InventoryBags, logger))

	sm := player.NewSessionManager(logger)
	hub := notify.NewHub(sm, pubsub, node, logger)
	svc := guild.NewService(guildCfg, store, guild.NewDirectory(), invs, guids, chars, hub, logger)

	guilds, err := store.LoadGuilds(ctx, guildCfg)
	if err != nil {
		log.Fatalf("load guilds: %v", err)
	}
	for _, g := range guilds {
		if err := svc.Restore(ctx, g); err != nil {
			logger.Error("restore guild", zap.Int64("guild_id", g.ID), zap.Error(err))
		}
	}
	logger.Info("guilds loaded", zap.Int("guilds", svc.Directory().Len()))

	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error("guild event relay stopped", zap.Error(err))
		}
	}()

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	resets := scheduler.NewGuildResets(svc, c, scheduler.ResetConfig{
		Hour:      cfg.Guild.ResetHour,
		WeeklyDay: time.Weekday(cfg.Guild.WeeklyResetDay),
	}, node, logger)
	resets.Start(sched, cfg.Guild.ResetCheck)

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	apows.NewGuildHandlers(svc, auditSvc, c, logger).RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(ctx, rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst, mw.ByIP))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok", "node": node})
	})

	// ---- REST API routes ----
	authH := apirest.NewAuthHandler(chars, c, cfg.Security, logger)
	guildH := apirest.NewGuildHandler(svc, auditSvc, logger)
	adminH := apirest.NewAdminHandler(svc, sm, sched, logger)
	sseH := sse.NewHandler(pubsub, c, cfg.Security, svc, logger)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		authed := api.Group("", mw.Auth(cfg.Security, c),
			mw.RateLimit(ctx, rate.Limit(cfg.Security.CommandRPS), cfg.Security.CommandBurst, mw.ByChar))
		guildH.Register(authed)

		adminG := api.Group("/admin")
		adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs, logger), apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/players", adminH.ListPlayers)
		adminG.POST("/kick/:id", adminH.KickPlayer)
		adminG.GET("/guilds", adminH.ListGuilds)
		adminG.POST("/guilds/reset", adminH.ResetQuotas)
		adminG.POST("/guilds/:id/news", adminH.PostNews)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/sessions", authH.Issue)
		adminG.POST("/announce", sseH.HandleAnnounce)
	}

	// ---- WebSocket ----
	wsH := apows.NewHandler(c, cfg.Security, sm, svc, chars, wsRouter, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE ----
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	sm.CloseAllSessions(cfg.Server.ShutdownTimeout)
}
