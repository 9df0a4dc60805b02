// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dca-oilgas/internal/app"
	"dca-oilgas/internal/config"
	"dca-oilgas/internal/util"
)

var BuildVersion = "dev" // diisi saat ldflags

func main() {
	cfg := config.Load()
	log := util.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	a := app.New(cfg, log) // <-- inisialisasi + inject repo, narrator, tools
	defer a.Close()

	srv := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      a.Router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // batch fitting bisa lama
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("version", BuildVersion).Infof("API running on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
}
