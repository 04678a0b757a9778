package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ayezhov/auth-service/internal/config"
	"github.com/ayezhov/auth-service/internal/httpserver"
	"github.com/ayezhov/auth-service/internal/models"
	"github.com/ayezhov/auth-service/internal/mq"
	"github.com/ayezhov/auth-service/internal/repo"
	"github.com/ayezhov/auth-service/internal/service"
	"github.com/ayezhov/auth-service/pkg/db"
	"github.com/ayezhov/auth-service/pkg/logging"
	loggingmw "github.com/ayezhov/auth-service/pkg/middleware/logging"
	"github.com/ayezhov/auth-service/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database error: %v", err)
	}
	if err := gdb.AutoMigrate(&models.User{}, &models.RefreshSession{}); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	codec, err := tokens.NewCodec([]byte(cfg.AccessSecret), []byte(cfg.RefreshSecret))
	if err != nil {
		log.Fatalf("token codec error: %v", err)
	}

	producer := mq.NewProducer([]string{cfg.KafkaAddress}, logger)

	svc := &service.AuthService{
		Repo:   &repo.GormRepo{DB: gdb},
		Codec:  codec,
		Events: producer,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		Auth: &httpserver.AuthHTTP{Svc: svc, Strict: cfg.StrictStatus},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	log.Println("shutdown complete")
}
