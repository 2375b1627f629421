package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderdesk/internal/app"
)

const (
	envHTTPAddr     = "ORDERDESK_HTTP_ADDR"
	envMetricsAddr  = "ORDERDESK_METRICS_ADDR"
	envPostgresDSN  = "ORDERDESK_POSTGRES_DSN"
	envKafkaBrokers = "ORDERDESK_KAFKA_BROKERS"
	envKafkaTopic   = "ORDERDESK_KAFKA_TOPIC"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)
}

// readConfigFromEnv формирует конфигурацию приложения, позволяя
// переопределить настройки через переменные окружения.
func readConfigFromEnv(lookup envLookup) app.Config {
	cfg := app.DefaultConfig()
	if v, ok := lookup(envHTTPAddr); ok && v != "" {
		cfg.HTTPAddr = v
	}
	if v, ok := lookup(envMetricsAddr); ok && v != "" {
		cfg.MetricsAddr = v
	}
	if v, ok := lookup(envPostgresDSN); ok && v != "" {
		cfg.PostgresDSN = v
	}
	if v, ok := lookup(envKafkaBrokers); ok && v != "" {
		cfg.KafkaBrokers = v
	}
	if v, ok := lookup(envKafkaTopic); ok && v != "" {
		cfg.KafkaTopic = v
	}
	return cfg
}

func main() {
	setupLogger()
	cfg := readConfigFromEnv(os.LookupEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем orderdesk")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("orderdesk остановлен")
}
