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

	"github.com/seen-ai/talentq"
	"github.com/seen-ai/talentq/internal/ai"
	"github.com/seen-ai/talentq/internal/api"
	"github.com/seen-ai/talentq/internal/config"
	"github.com/seen-ai/talentq/internal/recruit"
)

func main() {
	log := talentq.NewFmtLogger()

	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Errorf("config: %v", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Errorf("redis unreachable at %s: %v", cfg.RedisAddr, err)
		os.Exit(1)
	}

	deps := &recruit.Deps{
		AI: ai.NewClient(cfg.AIBaseURL, cfg.AIKey, cfg.AIModel, cfg.AIRequestTimeout),
		Retry: talentq.NewRetryExecutor(talentq.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			Multiplier:  2,
			Jitter:      cfg.RetryJitter,
		}, log),
		Log: log,
	}

	engCfg := talentq.EngineConfig{
		Concurrency:    cfg.Concurrency,
		ProcessTimeout: cfg.ProcessTimeout,
		Logger:         log,
	}

	mgr := talentq.NewManager(log)
	mgr.Register(talentq.NewEngine(recruit.QueueCVAnalysis, rdb, recruit.NewCVAnalyzer(deps), engCfg))
	mgr.Register(talentq.NewEngine(recruit.QueueQuestionGeneration, rdb, recruit.NewQuestionGenerator(deps), engCfg))
	mgr.Register(talentq.NewEngine(recruit.QueueInterviewAnalysis, rdb, recruit.NewInterviewAnalyzer(deps), engCfg))
	mgr.Register(talentq.NewEngine(recruit.QueueJobRequirements, rdb, recruit.NewRequirementsGenerator(deps), engCfg))
	mgr.StartAll()

	// Hourly purge of terminal jobs past the retention window.
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-cleanupCtx.Done():
				return
			case <-ticker.C:
				if _, err := mgr.CleanupAll(cleanupCtx, cfg.CleanupMaxAge); err != nil {
					log.Warnf("cleanup: %v", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: api.NewRouter(mgr, cfg.ShutdownDeadline, log),
	}
	go func() {
		log.Infof("listening on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Infof("shutting down")

	stopCleanup()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownDeadline)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if err := mgr.ShutdownAll(ctx); err != nil {
		log.Warnf("drain incomplete: %v", err)
	}
	_ = rdb.Close()
}
