package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/InterviewAndHealth/Conversation-Service/internal/ai"
	"github.com/InterviewAndHealth/Conversation-Service/internal/api"
	"github.com/InterviewAndHealth/Conversation-Service/internal/archive"
	"github.com/InterviewAndHealth/Conversation-Service/internal/broker"
	"github.com/InterviewAndHealth/Conversation-Service/internal/config"
	"github.com/InterviewAndHealth/Conversation-Service/internal/document"
	"github.com/InterviewAndHealth/Conversation-Service/internal/feedback"
	"github.com/InterviewAndHealth/Conversation-Service/internal/history"
	"github.com/InterviewAndHealth/Conversation-Service/internal/interview"
	"github.com/InterviewAndHealth/Conversation-Service/internal/kvstore"
	"github.com/InterviewAndHealth/Conversation-Service/internal/logging"
	"github.com/InterviewAndHealth/Conversation-Service/internal/ratelimit"
	"github.com/InterviewAndHealth/Conversation-Service/internal/scheduler"
	"github.com/InterviewAndHealth/Conversation-Service/internal/session"
)

func main() {
	cfg := config.Load()
	log, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	kv := kvstore.NewWithClient(redisClient)
	if err := kv.Ping(ctx); err != nil {
		log.Fatal("redis unreachable", zap.Error(err))
	}

	store, err := archive.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer store.Close()
	if err := store.RunMigrations(ctx); err != nil {
		log.Fatal("migrations", zap.Error(err))
	}

	gemini, err := ai.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("gemini client", zap.Error(err))
	}

	conn := broker.NewConnection(cfg.AMQPURL, cfg.ExchangeName, log)
	defer conn.Close()
	if _, err := conn.Connect(); err != nil {
		log.Fatal("message broker unreachable", zap.Error(err))
	}

	bus := broker.NewEventBus(conn, log)
	rpc := broker.NewRPC(conn, log)
	sched := scheduler.NewClient(bus, cfg.SchedulerQueue)

	interviews := interview.NewService(
		cfg, log,
		session.NewStore(kv),
		history.NewRedisLog(redisClient),
		gemini,
		feedback.NewGenerator(gemini, log),
		rpc, bus, sched,
		document.NewHTTPFetcher(cfg.ResumeMaxBytes),
		store,
	)

	limiter := ratelimit.NewStartLimiter(redisClient, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	server := api.New(cfg, log, interviews, limiter, store)

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bus.Subscribe(gctx, cfg.ServiceQueue, []string{cfg.ServiceQueue}, interviews)
	})
	g.Go(func() error {
		return rpc.Respond(gctx, cfg.RPCQueue, interviews)
	})
	g.Go(func() error {
		log.Info("api listening", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("service stopped", zap.Error(err))
	}
	log.Info("shutdown complete")
}
