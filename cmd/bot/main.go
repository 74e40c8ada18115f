package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/joho/godotenv/autoload"

	"github.com/minhdn/price-alert-bot/internal/bot"
	"github.com/minhdn/price-alert-bot/internal/config"
	"github.com/minhdn/price-alert-bot/internal/domain"
	"github.com/minhdn/price-alert-bot/internal/infrastructure/binance"
	"github.com/minhdn/price-alert-bot/internal/infrastructure/coingecko"
	"github.com/minhdn/price-alert-bot/internal/infrastructure/database"
	"github.com/minhdn/price-alert-bot/internal/infrastructure/gist"
	"github.com/minhdn/price-alert-bot/internal/monitor"
	"github.com/minhdn/price-alert-bot/internal/usecase"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := database.NewConnection(cfg.PostgresDSN)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	alertRepo := database.NewAlertRepository(db)

	mirror := gist.NewClient(cfg.GithubToken, cfg.GistID, cfg.HTTPTimeout)
	if !mirror.Enabled() {
		logger.Warn("GITHUB_TOKEN or GIST_ID not set, mirror sync disabled")
	}

	alertService := usecase.NewAlertService(alertRepo, mirror, logger)

	priceCache := monitor.NewPriceCache(cfg.Monitor.CacheTTL)
	limiter := monitor.NewRateLimiter(cfg.Monitor.RateLimit, cfg.Monitor.RateWindow)
	provider := coingecko.NewClient(cfg.HTTPTimeout)
	source := monitor.NewPriceSource(provider, priceCache, limiter, logger)

	tgBot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("failed to init telegram bot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tgBot.Debug = false
	logger.Info("Telegram bot authorized", slog.String("username", tgBot.Self.UserName))

	dispatcher := monitor.NewDispatcher(bot.NewTelegramNotifier(tgBot), logger)

	// Живой поток цен - необязательный прогрев кэша
	var streamer domain.MarketStreamer
	if cfg.Stream.Enabled {
		stream := binance.NewStream(logger)
		updates, err := stream.Subscribe()
		if err != nil {
			logger.Error("failed to start price stream", slog.String("error", err.Error()))
		} else {
			streamer = stream
			go func() {
				for event := range updates {
					priceCache.Put(event.TokenID, event.Price)
				}
			}()
		}
	}

	mon := monitor.New(
		alertRepo, source, dispatcher, streamer, logger,
		cfg.Monitor.CheckInterval, cfg.Monitor.StartupDelay,
	)

	botHandler := bot.NewHandler(tgBot, alertService, mon, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting bot...", slog.String("env", cfg.Env))

	go botHandler.Start(ctx)
	mon.Start()

	<-ctx.Done()
	mon.Stop()
	logger.Info("Bot stopped gracefully")
}
