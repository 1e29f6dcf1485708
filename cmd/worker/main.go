package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"ruang/config"
	"ruang/di"
	"ruang/shared/logger"
	"ruang/shared/timezone"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	logger.SetLogLevel(cfg)

	timezone.Init(cfg.App.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := di.InitializeWorker()

	log.Info().Str("topic", cfg.Kafka.Topics.Reservation).Str("group", cfg.Kafka.ConsumerGroup).Msg("Starting reservation event worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Reservation event worker stopped")
	}

	log.Info().Msg("Reservation event worker stopped")
}
