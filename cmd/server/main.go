package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	webAdapter "invoice-agent/internal/adapters/web"
	"invoice-agent/internal/ai"
	"invoice-agent/internal/app"
	"invoice-agent/internal/config"
	"invoice-agent/internal/core"
	"invoice-agent/internal/db"
	"invoice-agent/internal/logger"
	"invoice-agent/internal/qbo"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("logger")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer pool.Close()

	connections := core.NewConnectionStore(pool)
	users := core.NewUserService(pool)

	sessions := qbo.NewManager(connections, qbo.ManagerConfig{
		ClientID:     cfg.QBOClientID,
		ClientSecret: cfg.QBOClientSecret,
		RedirectURL:  cfg.QBORedirectURL,
		AuthURL:      cfg.QBOAuthURL,
		TokenURL:     cfg.QBOTokenURL,
		APIBaseURL:   cfg.QBOAPIBaseURL,
		MinorVersion: cfg.QBOMinorVersion,
	})

	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; chat endpoints will fail")
	}
	agent := ai.NewAgent(cfg.OpenAIAPIKey)

	svc := app.NewAppService(sessions, users, connections, agent)
	handler := webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret)

	log.Info().Str("port", cfg.ServerPort).Msg("server starting")
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
