package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"marv/api"
	"marv/config"
	"marv/internal/ai"
	handlers "marv/internal/api"
	"marv/internal/logging"
	"marv/internal/metrics"
	"marv/internal/middleware"
	"marv/internal/samples"
)

func main() {
	// .env must be loaded before viper reads the environment.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Error loading .env file: %v", err)
		} else {
			log.Info(".env file not found, relying on system environment variables")
		}
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	logging.Setup(cfg.LogFormat, cfg.LogLevel)

	generator := ai.NewGenerator(newProvider(cfg), cfg.LLMModel)

	catalogue, err := samples.Load()
	if err != nil {
		log.Fatalf("Cannot load sample prompts: %v", err)
	}

	apiHandler := handlers.NewAPIHandler(generator, catalogue)
	metrics.Register()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
		log.Info("Running in Gin Debug Mode")
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(cors.New(corsConfig(cfg)))

	var generateMiddleware []gin.HandlerFunc
	if cfg.RateLimitPerMinute > 0 {
		generateMiddleware = append(generateMiddleware, middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, time.Minute))
	}
	api.RegisterRoutes(router, apiHandler, generateMiddleware...)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: it would cut long generations mid-stream.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"addr":     cfg.ServerAddress,
			"provider": generator.ProviderName(),
			"model":    generator.Model(),
		}).Info("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server listen error: %s", err)
		}
		log.Info("API server has stopped listening")
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infof("Received signal: %s. Shutting down server...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("API server forced shutdown error: %v", err)
	} else {
		log.Info("API server gracefully stopped")
	}
}

func newProvider(cfg config.Config) ai.Provider {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		return ai.NewOllamaProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, nil)
	default:
		return ai.NewOpenAIProvider(cfg.LLMAPIKey, cfg.LLMBaseURL, nil)
	}
}

func corsConfig(cfg config.Config) cors.Config {
	c := cors.DefaultConfig()
	origins := cfg.Origins()
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Content-Type", middleware.RequestIDHeader}
	c.ExposeHeaders = []string{middleware.RequestIDHeader}
	c.MaxAge = 12 * time.Hour
	return c
}
