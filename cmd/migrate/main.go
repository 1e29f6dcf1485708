package main

import (
	"os"
	"ruang/config"
	"ruang/helper"
	"ruang/shared/logger"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	argLength = 2
)

func main() {
	if err := config.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	cfg := config.Get()
	logger.InitLogger(cfg)

	if len(os.Args) < argLength {
		log.Fatal().Msgf("Migration action is required, use one of: %s", strings.Join(helper.Actions(), ", "))
	}

	if err := helper.Runner(cfg, os.Args[1]); err != nil {
		log.Fatal().Err(err).Str("action", os.Args[1]).Msg("Migration failed")
	}
}
