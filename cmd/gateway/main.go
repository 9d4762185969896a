package main

import (
	"log"

	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/app"
	"github.com/FeoreV/telegram-ecommerce-cms-sub010/internal/gateway/platform"
)

func main() {
	cfg := app.LoadConfig()

	if cfg.PlatformBaseURL == "" {
		log.Fatal("PLATFORM_BASE_URL is required")
	}
	client := platform.New(cfg.PlatformBaseURL, cfg.PlatformServiceKey)

	application, err := app.New(cfg, client, client)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
