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

	intconfig "buspass/internal/config"
	"buspass/internal/gateway"
	router "buspass/internal/http"
	"buspass/internal/repositories"
	"buspass/internal/services"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	intconfig.ConnectDB(env.DBDSN)
	defer intconfig.CloseDB()

	rdb := intconfig.ConnectRedis(env.RedisAddr)
	if rdb != nil {
		defer rdb.Close()
	}

	gw := gateway.Client{
		KeyID:   env.GatewayKeyID,
		Secret:  env.GatewaySecret,
		BaseURL: env.GatewayBaseURL,
	}

	// Router (Gin engine)
	r := router.NewRouter(env, gw, rdb)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := services.Sweeper{
		AppRepo:    repositories.ApplicationRepository{},
		TicketRepo: repositories.TicketRepository{},
		PendingTTL: env.PaymentPendingTTL,
	}
	go sweeper.Run(sweepCtx, env.SweepInterval)

	go func() {
		log.Printf("Server listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server shutdown failed: %v", err)
	}

	log.Println("Server stopped cleanly.")
}
