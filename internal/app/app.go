package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orderdesk/internal/health"
	"github.com/vladislavdragonenkov/orderdesk/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderdesk/internal/metrics"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/order"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/outbox"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/rest"
	"github.com/vladislavdragonenkov/orderdesk/internal/service/sequence"
	"github.com/vladislavdragonenkov/orderdesk/internal/version"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr     string
	MetricsAddr  string
	PostgresDSN  string
	KafkaBrokers string
	KafkaTopic   string
}

// DefaultConfig возвращает базовые адреса для HTTP API и метрик.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
	}
}

func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("failed to close storage")
		}
	}()

	orderMetrics := metrics.NewOrderMetrics()
	generator := sequence.NewGenerator(deps.Sequences, nil, logger.WithField("component", "sequence-generator"))
	orderService := order.NewService(
		deps.Orders,
		generator,
		logger.WithField("component", "order-service"),
		order.WithOutbox(deps.Outbox),
		order.WithMetrics(orderMetrics),
	)

	// Kafka настраивается опционально: без брокеров события копятся в outbox.
	kafkaProducer, _ := connectKafka(cfg.KafkaBrokers, logger)
	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if kafkaProducer != nil {
		publisher := kafka.NewOutboxPublisher(kafkaProducer, cfg.KafkaTopic)
		dlqPublisher := kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicDeadLetterQueue)
		worker := outbox.NewWorker(
			deps.Outbox,
			publisher,
			outbox.WithDLQPublisher(dlqPublisher),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		)
		go worker.Run(workerCtx)
	}

	healthHandler := healthcheck.NewHandler(version.Version())
	if deps.Store != nil {
		healthHandler.RegisterCheck("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.Store.Ping(pingCtx)
		})
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: rest.NewRouter(orderService, logger.WithField("component", "rest")),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		stopWorker()
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		shutdownKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		stopWorker()
		shutdownHTTP(metricsSrv, logger)
		shutdownKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
