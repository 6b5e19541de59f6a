package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/insight-quest/internal/api"
	"github.com/ad/insight-quest/internal/config"
	"github.com/ad/insight-quest/internal/db"
	"github.com/ad/insight-quest/internal/handlers"
	"github.com/ad/insight-quest/internal/server"
	"github.com/ad/insight-quest/internal/services"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	cfg.SetupLogging()

	sqlDB, err := openDB(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	dbQueue := db.NewDBQueue(sqlDB)
	defer dbQueue.Close()

	userRepo := db.NewUserRepository(dbQueue)
	chatStateRepo := db.NewChatStateRepository(dbQueue)
	progressionRepo := db.NewProgressionRepository(dbQueue)
	eventRepo := db.NewEventRepository(dbQueue)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clock := clockwork.NewRealClock()

	registry := prometheus.NewRegistry()
	metrics := services.NewMetrics(registry)
	var metricsServer *server.MetricsServer
	if cfg.MetricsPort > 0 {
		metricsServer = server.NewMetricsServer(registry, cfg.MetricsPort, "/metrics")
		if err := metricsServer.Setup(); err != nil {
			logrus.Fatalf("Failed to set up metrics: %v", err)
		}
		metricsServer.Start()
	}

	leaderboard, leaderboardSync, closeLeaderboard, err := newLeaderboard(cfg, progressionRepo, clock)
	if err != nil {
		logrus.Fatalf("Failed to set up leaderboard: %v", err)
	}
	defer closeLeaderboard()
	if leaderboardSync != nil {
		if err := leaderboardSync.Start(ctx); err != nil {
			logrus.Fatalf("Failed to start leaderboard sync: %v", err)
		}
	}

	var b *bot.Bot
	var sink services.NotificationSink = services.NopSink{}
	var errorManager *services.ErrorManager
	var msgManager *services.MessageManager
	if cfg.BotEnabled() {
		b, err = newBot(cfg.BotToken)
		if err != nil {
			logrus.Fatalf("Failed to start bot: %v", err)
		}
		errorManager = services.NewErrorManager(b, cfg.AdminID)
		msgManager = services.NewMessageManager(b, errorManager)
		sink = services.NewTelegramNotifier(userRepo, msgManager)
	} else {
		logrus.Warn("BOT_TOKEN is not set, running without the Telegram bot")
	}

	progressionSvc := services.NewProgressionService(
		progressionRepo,
		eventRepo,
		leaderboard,
		sink,
		metrics,
		clock,
		cfg.Location(),
	)

	app := api.NewApp()
	api.SetupRoutes(app, progressionSvc, cfg.AdminToken, cfg.LeaderboardSize)
	go func() {
		logrus.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			logrus.WithError(err).Error("HTTP API stopped")
			cancel()
		}
	}()

	if b != nil {
		handler := handlers.NewBotHandler(
			cfg.AdminID,
			errorManager,
			msgManager,
			userRepo,
			chatStateRepo,
			progressionSvc,
			cfg.LeaderboardSize,
		)
		b.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
			return true
		}, handler.HandleUpdate, logMiddleware)

		logrus.Infof("Bot started. Admin ID: %d, DB: %s", cfg.AdminID, cfg.DBPath)
		go b.Start(ctx)
	}

	<-ctx.Done()
	logrus.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP API shutdown failed")
	}
	if leaderboardSync != nil {
		if err := leaderboardSync.Shutdown(); err != nil {
			logrus.WithError(err).Warn("Leaderboard sync shutdown failed")
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Metrics server shutdown failed")
		}
	}
}

func openDB(path string) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return sqlDB, nil
}

// newLeaderboard uses Redis when REDIS_ADDR is set and the progression
// table otherwise. The returned sync job is nil without Redis.
func newLeaderboard(cfg *config.Config, repo *db.ProgressionRepository, clock clockwork.Clock) (services.Leaderboard, *services.LeaderboardSync, func(), error) {
	if !cfg.RedisEnabled() {
		return services.NewStoreLeaderboard(repo), nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	board := services.NewRedisLeaderboard(client)
	syncJob, err := services.NewLeaderboardSync(repo, board, cfg.LeaderboardSyncInterval, clock)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}
	return board, syncJob, func() { client.Close() }, nil
}

func newBot(token string) (*bot.Bot, error) {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	b, err := bot.New(token, bot.WithHTTPClient(15*time.Second, httpClient))
	if err != nil {
		return nil, err
	}

	// Retry getMe with shorter timeout
	for i := 0; i < 3; i++ {
		logrus.Infof("Attempting to connect to Telegram API (attempt %d/3)...", i+1)
		getMeCtx, getMeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		var info *tgmodels.User
		info, err = b.GetMe(getMeCtx)
		getMeCancel()
		if err == nil {
			logrus.Infof("Connected to Telegram API as @%s", info.Username)
			return b, nil
		}
		logrus.Warnf("Failed to get bot info (attempt %d/3): %v", i+1, err)
		if i < 2 {
			time.Sleep(2 * time.Second)
		}
	}
	return nil, errors.Join(errors.New("telegram API unreachable after 3 attempts"), err)
}

func formatUser(u *tgmodels.User) string {
	if u == nil {
		return "unknown"
	}
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return fmt.Sprintf("%s [%d]", name, u.ID)
}

func logMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
		if update.Message != nil {
			logrus.WithField("from", formatUser(update.Message.From)).Debugf("[MSG] text=%q", update.Message.Text)
		}
		next(ctx, b, update)
	}
}
