package app

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/observability"
	in_memory "github.com/iamvkosarev/study-energy-bot/internal/storage/in-memory"
	key_value "github.com/iamvkosarev/study-energy-bot/internal/storage/key-value"
	"github.com/iamvkosarev/study-energy-bot/internal/usecase"
	"github.com/iamvkosarev/study-energy-bot/pkg/local"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func Run(cfg *config.Config, debug bool) error {
	logger, err := observability.NewLogger(debug)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	bot, err := api.NewBotAPI(cfg.Telegram.TelegramAPIToken)
	if err != nil {
		return fmt.Errorf("failed to create new bot: %w", err)
	}
	logger.Info("authorized on account", zap.String("username", bot.Self.UserName))

	var (
		userStorage    usecase.UserStorage
		sessionStorage usecase.ChatSessionStorage
		buddyStorage   usecase.BuddyStorage
	)
	if cfg.Redis.Endpoint != "" {
		rdb := redis.NewClient(
			&redis.Options{
				Addr: cfg.Redis.Endpoint,
			},
		)
		userStorage = key_value.NewUserStorage(rdb)
		sessionStorage = key_value.NewChatSessionStorage(rdb)
		buddyStorage = key_value.NewBuddyStorage(rdb)
	} else {
		userStorage = in_memory.NewUserStorage()
		sessionStorage = in_memory.NewChatSessionStorage()
		buddyStorage = in_memory.NewBuddyStorage()
	}

	openAIUsecase := usecase.NewOpenAIUsecase(cfg.OpenAI, logger)

	generationUsecase := usecase.NewGenerationUsecase(
		usecase.GenerationUsecaseDeps{
			Generator: openAIUsecase,
		}, local.Chn, logger,
	)

	userUsecase := usecase.NewUserUsecase(
		usecase.UserUsecaseDeps{
			UserStorage: userStorage,
		},
		cfg.Telegram,
	)

	sessionUsecase := usecase.NewChatSessionUsecase(
		usecase.ChatSessionUsecaseDeps{
			SessionStorage: sessionStorage,
			Generation:     generationUsecase,
		}, logger,
	)

	petUsecase := usecase.NewPetUsecase(cfg.Pet, local.Chn, logger)
	stopDecay := petUsecase.StartDecay(context.Background())
	defer stopDecay()

	timerUsecase := usecase.NewTimerUsecase(
		usecase.TimerUsecaseDeps{
			Generation: generationUsecase,
		},
	)

	buddyUsecase := usecase.NewBuddyUsecase(
		usecase.BuddyUsecaseDeps{
			BuddyStorage: buddyStorage,
			Pet:          petUsecase,
		}, cfg.Buddy, logger,
	)

	telegramUsecase, err := usecase.NewTelegramUsecase(
		cfg.Telegram, usecase.TelegramUsecaseDeps{
			User:       userUsecase,
			Bot:        bot,
			Generation: generationUsecase,
			Session:    sessionUsecase,
			Timer:      timerUsecase,
			Pet:        petUsecase,
			Buddy:      buddyUsecase,
		}, logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create telegram usecase: %w", err)
	}

	defer sessionUsecase.Wait()
	return telegramUsecase.Run()
}
