package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/glowbook/booking-service/internal/config"
	"github.com/glowbook/booking-service/internal/notify"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("notify-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	if cfg.KafkaBrokers == "" {
		log.Fatal("KAFKA_BROKERS is required for the notify worker")
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier := buildNotifier()

	consumer := notify.NewConsumer(notify.ConsumerConfig{
		Brokers: cfg.KafkaBrokers,
		GroupID: "notify-worker",
	}, notifier)

	log.Printf("consuming booking events in env=%s", cfg.Env)
	consumer.Run(rootCtx)

	log.Println("shutting down notify-worker")
}

// buildNotifier picks SMTP when configured, console otherwise.
func buildNotifier() notify.Notifier {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return notify.NewConsole()
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "25"
	}
	return notify.NewSMTP(host, port, os.Getenv("SMTP_FROM"))
}
