// Package main is the entry point of the coaching chat server.
package main

import (
	"context"
	"fitcoach-go/internal/config"
	"fitcoach-go/internal/handler"
	"fitcoach-go/internal/middleware"
	"fitcoach-go/internal/repository"
	"fitcoach-go/internal/service"
	"fitcoach-go/pkg/cache"
	"fitcoach-go/pkg/database"
	"fitcoach-go/pkg/llm"
	"fitcoach-go/pkg/log"
	"fitcoach-go/pkg/token"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

const cachePrefix = "fitcoach:"

func main() {
	// 1. configuration
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. logger
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialised")

	// 3. MySQL and Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := repository.AutoMigrate(database.DB); err != nil {
		log.Fatal("failed to migrate chat tables", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. services
	llmClient := llm.NewClient(cfg.LLM)
	if !llmClient.Available() {
		log.Warnw("completion backend not configured, replies will use fallback texts", "model", llmClient.Model())
	}
	chatService := service.NewChatService(service.Dependencies{
		Conversations: repository.NewConversationRepository(database.DB),
		Messages:      repository.NewMessageRepository(database.DB),
		Contexts:      repository.NewChatContextRepository(database.DB),
		Profiles:      repository.NewProfileRepository(database.DB),
		LLM:           llmClient,
		Cache:         cache.NewRedisCache(database.RDB, cachePrefix),
		Config:        cfg.Chat,
	})
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)

	// 5. routes
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	chat := r.Group("/api/v1/chat")
	chat.Use(middleware.AuthMiddleware(jwtManager))
	handler.NewChatHandler(chatService).RegisterRoutes(chat)
	r.GET("/ws/:token", handler.NewChatSocketHandler(chatService, jwtManager).Handle)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP server shutdown failed: %v", err)
	}
	if err := database.RDB.Close(); err != nil {
		log.Warnw("failed to close redis client", "error", err)
	}
	log.Info("server stopped")
}
