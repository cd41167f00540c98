package main

import (
	"log"
	"net/http"

	"watchdog/internal/api"
	"watchdog/internal/config"
	"watchdog/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	h, err := api.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("api startup failed", zap.Error(err))
	}
	logger.Info("watchdog api listening",
		zap.String("addr", cfg.APIAddr),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.String("embed_provider", cfg.EmbedProvider))
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		logger.Fatal("api server exited", zap.Error(err))
	}
}
