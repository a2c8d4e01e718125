package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"stars-shop-backend/internal/bot"
	"stars-shop-backend/internal/catalog"
	"stars-shop-backend/internal/config"
	"stars-shop-backend/internal/env"
	"stars-shop-backend/internal/fragment"
	"stars-shop-backend/internal/server"
	"stars-shop-backend/internal/store"
	"stars-shop-backend/internal/telegram"
	"stars-shop-backend/internal/usecase"
)

func main() {
	env.Load(".env", ".env.local")
	cfg, err := config.FromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("bad configuration")
	}

	envName := flag.String("env", cfg.Env, "")
	port := flag.Int("port", cfg.Port, "")
	logJSON := flag.Bool("log-json", cfg.LogJSON, "")
	flag.Parse()
	cfg.Env = *envName
	cfg.Port = *port
	cfg.LogJSON = *logJSON

	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("bad configuration")
	}

	var repo usecase.OrderRepo
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("postgres init failed")
		}
		repo = pg
		logger.Info("using postgres order store")
	} else {
		repo = store.NewMemory()
		logger.Info("using in-memory order store")
	}

	cat := catalog.NewSeeded()

	gw, err := telegram.NewGateway(cfg.BotToken, logger.WithField("component", "telegram"))
	if err != nil {
		logger.WithError(err).Fatal("telegram gateway init failed")
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = cfg.AdminPassword
	}

	orders := &usecase.OrderService{
		Repo:        repo,
		Catalog:     cat,
		Gateway:     gw,
		Fragment:    fragment.NewClient(cfg.FragmentAPIURL, cfg.FragmentAPIKey),
		AdminChatID: cfg.AdminChatID,
		LogsChannel: cfg.LogsChannelID,
		Log:         logger.WithField("component", "orders"),
	}
	query := &usecase.QueryService{Repo: repo}
	auth := &usecase.AuthService{
		Password:  cfg.AdminPassword,
		JWTSecret: jwtSecret,
		TokenTTL:  time.Hour,
	}
	notify := &usecase.NotifyService{Gateway: gw}
	hook := &bot.Handler{
		Gateway:     gw,
		Decisions:   orders,
		Repo:        repo,
		Query:       query,
		Catalog:     cat,
		AdminChatID: cfg.AdminChatID,
		AdminSecret: cfg.AdminSecretCommand,
		Log:         logger.WithField("component", "webhook"),
	}

	srv := server.New(cfg, orders, query, auth, notify, cat, hook, logger.WithField("component", "server"))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.WithField("addr", addr).Info("listening")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func newLogger(cfg config.Config) *logrus.Entry {
	log := logrus.New()
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log.WithField("service", "stars-shop")
}
