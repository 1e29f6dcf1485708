package main

import (
	"ruang/config"
	"ruang/di"
	"ruang/shared/logger"
	"ruang/shared/timezone"
)

// @title Ruang API
// @version 1.0
// @description Room reservations for campus facilities.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	logger.SetLogLevel(cfg)

	timezone.Init(cfg.App.Timezone)

	http := di.InitializeService()
	http.Serve()
}
