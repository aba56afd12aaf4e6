package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"BullionLedger/internal/api"
	"BullionLedger/internal/collector"
	"BullionLedger/internal/config"
	"BullionLedger/internal/ingest"
	"BullionLedger/internal/logger"
	"BullionLedger/internal/notifier"
	"BullionLedger/internal/recorder"
	"BullionLedger/internal/scheduler"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	log := logger.Get()
	log.Info("BullionLedger starting")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config validation")
	}
	loc, _ := cfg.Location()

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	if cfg.Daemon() {
		gin.SetMode(gin.ReleaseMode)
	}

	fetcher := collector.NewHTTPFetcher(cfg.Timeout(), cfg.HTTP.RequestsPerSecond, cfg.Proxy)
	ing := ingest.NewIngestor(collector.NewCollector(fetcher), cfg.Commodities, cfg.DataDir, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var tn *notifier.TelegramNotifier
	var notif scheduler.Notifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		notif = tn
	}

	sched := scheduler.NewScheduler(ctx, ing, notif, rec, loc)
	sched.NotifyOnSuccess = cfg.Telegram.NotifyOnSuccess
	sched.Commodities = cfg.Commodities
	sched.DataDir = cfg.DataDir

	if !cfg.Daemon() {
		summary := sched.RunNow()
		for _, r := range summary.Results {
			if r.OK() {
				fmt.Printf("%s: OK\n", r.Commodity)
			} else {
				fmt.Printf("%s: FAILED -> %s\n", r.Commodity, r.Err)
			}
		}
		return
	}

	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.WithError(err).Fatal("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}
	if cfg.Server.Addr != "" {
		router := api.NewRouter(api.NewHandler(cfg.Commodities, cfg.DataDir, rec))
		go api.Serve(ctx, cfg.Server.Addr, router)
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running ingestion now")
		go sched.RunNow()
	}

	log.WithField("cron", cfg.Schedule.Cron).Info("BullionLedger is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
}
