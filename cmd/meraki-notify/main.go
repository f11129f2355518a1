// Command meraki-notify consumes notification events from RabbitMQ and
// delivers the emails they describe. It reads the same configuration as the
// meraki server.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/dalemusser/meraki/internal/app/bootstrap"
	"github.com/dalemusser/meraki/internal/app/system/notify"
	"go.uber.org/zap"
)

const (
	queueName = "meraki.notify"
	workers   = 4
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("notify consumer stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	_, appCfg, err := bootstrap.LoadConfig(logger)
	if err != nil {
		return err
	}
	if appCfg.RabbitMQURL == "" {
		return errors.New("rabbitmq_url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer, err := notify.NewConsumer(appCfg.RabbitMQURL, appCfg.RabbitMQExchange, queueName,
		[]string{notify.KeyPasswordResetRequested}, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	handler := notify.NewHandler(bootstrap.NewMailSender(appCfg, logger), appCfg.SiteName, logger)
	logger.Info("consuming notifications", zap.String("exchange", appCfg.RabbitMQExchange), zap.String("queue", queueName))
	return consumer.Consume(ctx, workers, handler.Handle)
}
