package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
)

type UserStorage interface {
	GetUserIDForTelegramUser(ctx context.Context, userTelegramID int64) (uuid.UUID, error)
	CreateNewTelegramUser(ctx context.Context, userTelegramID int64, roles []model.UserRole) (uuid.UUID, error)
	GetUserInfo(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateUserActiveSession(ctx context.Context, userID uuid.UUID, sessionID uuid.UUID) error
}

type UserUsecaseDeps struct {
	UserStorage UserStorage
}

type UserUsecase struct {
	UserUsecaseDeps
	telegramCfg config.Telegram
}

func NewUserUsecase(deps UserUsecaseDeps, telegramCfg config.Telegram) *UserUsecase {
	return &UserUsecase{
		UserUsecaseDeps: deps,
		telegramCfg:     telegramCfg,
	}
}

func (u *UserUsecase) GetUserInfoForTelegramUser(ctx context.Context, userTelegramID int64) (model.User, error) {
	userID, err := u.UserStorage.GetUserIDForTelegramUser(ctx, userTelegramID)
	if err != nil {
		userID, err = u.UserStorage.CreateNewTelegramUser(ctx, userTelegramID, u.getTelegramUserRoles(userTelegramID))
		if err != nil {
			return model.User{}, err
		}
	}
	return u.UserStorage.GetUserInfo(ctx, userID)
}

func (u *UserUsecase) GetUserInfo(ctx context.Context, userID uuid.UUID) (model.User, error) {
	return u.UserStorage.GetUserInfo(ctx, userID)
}

func (u *UserUsecase) UpdateUserActiveSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	return u.UserStorage.UpdateUserActiveSession(ctx, userID, sessionID)
}

func (u *UserUsecase) getTelegramUserRoles(userTelegramID int64) []model.UserRole {
	roles := []model.UserRole{
		model.UserRoleDefault,
	}
	for _, userWithRoleID := range u.telegramCfg.AdminTelegramIDList {
		if userWithRoleID == userTelegramID {
			roles = append(roles, model.UserRoleAdmin)
			break
		}
	}
	return roles
}
