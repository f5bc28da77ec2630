package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/meeraclinic/clinic-ai-platform/internal/api/router"
	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	appconfig "github.com/meeraclinic/clinic-ai-platform/internal/config"
	"github.com/meeraclinic/clinic-ai-platform/internal/conversation"
	"github.com/meeraclinic/clinic-ai-platform/internal/http/handlers"
	"github.com/meeraclinic/clinic-ai-platform/internal/observability/metrics"
	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

func main() {
	// Load .env in development; ignore if absent.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-ai-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.OpenAIAPIKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}

	directory, err := clinic.LoadDirectory(cfg.DoctorsFile)
	if err != nil {
		logger.Error("failed to load doctor directory", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	schedulingMetrics := metrics.NewSchedulingMetrics(registry)
	conversationMetrics := metrics.NewConversationMetrics(registry)

	store := scheduling.NewFileStore(cfg.AppointmentsFile)
	scheduler := scheduling.New(scheduling.Config{
		Directory: directory,
		Store:     store,
		Gaps: scheduling.GapPolicy{
			SuggestionGap: cfg.SuggestionGapMinutes,
			BookingGap:    cfg.BookingGapMinutes,
		},
		SlotDuration: cfg.SlotDurationMinutes,
		SameDayLead:  cfg.SameDayLeadMinutes,
		Logger:       logger,
		Metrics:      schedulingMetrics,
	})

	dispatcher := tools.New(tools.Config{
		Scheduler: scheduler,
		Directory: directory,
		Logger:    logger,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	resolver := conversation.NewResolver(conversation.Config{
		Client:        openai.NewClient(cfg.OpenAIAPIKey),
		Redis:         redisClient,
		Dispatcher:    dispatcher,
		Specialties:   directory.Specialties(),
		Model:         cfg.ChatModel,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxOutputTokens,
		MaxIterations: cfg.MaxToolIterations,
		Logger:        logger,
		Metrics:       conversationMetrics,
	})

	r := router.New(&router.Config{
		Logger:              logger,
		ChatHandler:         handlers.NewChatHandler(resolver, logger),
		AppointmentsHandler: handlers.NewAppointmentsHandler(dispatcher, store, logger),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
