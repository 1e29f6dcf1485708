package handler

import (
	"net/http"
	"sync"

	"ruang/config"
	"ruang/di"
	"ruang/shared/logger"
	"ruang/shared/timezone"
)

var (
	once sync.Once
	mux  http.Handler
)

func Handler(w http.ResponseWriter, r *http.Request) {
	r.RequestURI = r.URL.String()

	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger(cfg)

		logger.SetLogLevel(cfg)

		timezone.Init(cfg.App.Timezone)

		mux = di.InitializeService().Handler()
	})

	mux.ServeHTTP(w, r)
}
