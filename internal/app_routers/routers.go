package approuters

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/VISHYOU-GIT/realestate-chat/internal/configuration"
	"github.com/VISHYOU-GIT/realestate-chat/internal/middleware"
)

// StartServer runs the application server and the websocket server on their
// own ports and blocks until a shutdown signal or a server error.
func StartServer(container *configuration.Container) {
	logger := container.Logger

	socketServer := &http.Server{
		Addr:         container.Config.Server.SocketAddr(),
		Handler:      createSocketMux(container),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	appServer := createAppServer(container)

	serverErrors := make(chan error, 2)

	go func() {
		logger.Info("socket server starting", zap.String("addr", socketServer.Addr))
		if err := socketServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("socket server error: %w", err)
		}
	}()

	go func() {
		logger.Info("application server starting", zap.String("addr", appServer.Addr))
		if err := appServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("app server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.Stringer("signal", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("stopping hub and closing websocket connections")
	container.Hub.Stop()

	if err := socketServer.Shutdown(ctx); err != nil {
		logger.Warn("socket server shutdown error", zap.Error(err))
	}
	if err := appServer.Shutdown(ctx); err != nil {
		logger.Warn("app server shutdown error", zap.Error(err))
	}

	logger.Info("graceful shutdown complete")
}

// createSocketMux authenticates the websocket upgrade with the same tokens
// the REST API uses; browsers cannot set headers on the upgrade request, so
// the token travels as a query parameter.
func createSocketMux(container *configuration.Container) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "token is required", http.StatusUnauthorized)
			return
		}

		claims, err := middleware.ParseToken(container.Config.JWT.Secret, token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		container.Hub.ServeWS(w, r, claims.UserID, claims.Username)
	})
	return mux
}

func createAppServer(container *configuration.Container) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Message sends carry their own per-conversation throttle, so the chat
	// routes bypass the shared bucket.
	bucket := middleware.NewTokenBucket(
		container.Config.Throttle.GlobalCapacity,
		container.Config.Throttle.GlobalRefill,
	)
	router.Use(middleware.RateLimit(bucket, "/api/chat"))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "realestate-chat", "status": "ok"})
	})
	healthcheck := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthcheck)
	router.GET("/api/health", healthcheck)

	ChatRouters(router, container)
	MonitorRouters(router, container)

	return &http.Server{
		Addr:         container.Config.Server.AppAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
