package main

import (
	"context"
	"os"
	"ruang/config"
	"ruang/di"
	"ruang/internal/seed"
	"ruang/shared/constant"
	"ruang/shared/logger"
	"ruang/shared/timezone"

	"github.com/rs/zerolog/log"
)

const argForce = "--force"

// Replaces all users, rooms and reservations with the embedded fixtures, or with the YAML file
// given as the first argument. Production databases are only touched with --force.
func main() {
	if err := config.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	cfg := config.Get()
	logger.InitLogger(cfg)
	timezone.Init(cfg.App.Timezone)

	force := false
	path := ""

	for _, arg := range os.Args[1:] {
		if arg == argForce {
			force = true

			continue
		}

		path = arg
	}

	if cfg.Server.Env == constant.ServerEnvProduction && !force {
		log.Fatal().Msgf("Refusing to seed a production database without %s", argForce)
	}

	data := seed.DefaultFixtures()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to read fixtures")
		}

		data = raw
	}

	fixtures, err := seed.Parse(data)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fixtures")
	}

	dataset, err := seed.Build(fixtures, timezone.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid fixtures")
	}

	if err := di.InitializeSeeder().Run(context.Background(), dataset); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}
