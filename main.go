package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vip-gate/src/access"
	"vip-gate/src/config"
	"vip-gate/src/ledger"
	"vip-gate/src/mercadopago"
	"vip-gate/src/server"
	"vip-gate/src/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	level, err := strconv.Atoi(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("LOG_LEVEL must be a numeric zerolog level")
	}
	zerolog.SetGlobalLevel(zerolog.Level(level))
	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	led := ledger.New(cfg.DBPath)
	if err := led.Load(); err != nil {
		logger.Fatal().Err(err).Msg("loading ledger")
	}

	mp := mercadopago.NewClient(cfg.MPAccessToken, cfg.PublicURL)

	bot, err := telegram.NewBot(cfg.BotToken, cfg.VIPChatID, cfg.PreviewsLink, cfg.StartVideoPath, mp, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("starting telegram bot")
	}

	processor := &access.Processor{Ledger: led, Gateway: mp, Logger: logger}
	issuer := &access.Issuer{Ledger: led, Inviter: bot, Logger: logger}
	bot.Claimer = issuer

	srv := server.New(processor, bot, logger)
	go srv.Run()

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		srv.Close()
		os.Exit(0)
	}()

	if err := bot.SetWebhook(cfg.PublicURL + "/telegram"); err != nil {
		logger.Fatal().Err(err).Msg("registering telegram webhook")
	}
	logger.Info().Str("telegram", cfg.PublicURL+"/telegram").Str("mercadopago", cfg.PublicURL+"/mp/webhook").Msg("webhooks registered")

	if err := srv.ListenAndServe(cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
