package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/glowbook/booking-service/internal/booking"
	"github.com/glowbook/booking-service/internal/config"
	"github.com/glowbook/booking-service/internal/db"
	"github.com/glowbook/booking-service/internal/outbox"
	"github.com/glowbook/booking-service/internal/reminder"
	redisclient "github.com/glowbook/booking-service/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s", cfg.Env, cfg.ReminderInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	repo := booking.NewPgRepository(pgPool)
	marker := redisclient.NewRedisDayMarker(rdb)
	outboxRepo := outbox.NewRepository(pgPool)
	scanner := reminder.NewScanner(repo, marker, outboxRepo, 24*time.Hour)

	// The worker also drains the outbox so reminders reach Kafka even when
	// the api-server is down.
	publisher := outbox.NewPublisher(outboxRepo, outbox.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		PollEvery: cfg.OutboxPoll,
		BatchSize: cfg.OutboxBatch,
	})
	go publisher.Run(rootCtx)

	// Run once at startup
	runOnce(rootCtx, scanner)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, scanner)
		}
	}
}

func runOnce(ctx context.Context, scanner *reminder.Scanner) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := scanner.Scan(runCtx); err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}
	log.Printf("reminder run complete in %s", time.Since(start))
}
