package repository

import (
	"context"

	"github.com/questforge/backend/internal/entity"
	"github.com/questforge/backend/pkg/xcontext"
)

type UserRepository interface {
	Create(context.Context, *entity.User) error
	GetByID(context.Context, string) (*entity.User, error)
}

type userRepository struct{}

func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(ctx context.Context, data *entity.User) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	result := &entity.User{}
	if err := xcontext.DB(ctx).Take(result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return result, nil
}

type WalletRepository interface {
	Create(context.Context, *entity.UserWallet) error
	GetByUserID(ctx context.Context, userID string) ([]entity.UserWallet, error)
	GetByAddress(ctx context.Context, userID, address string) (*entity.UserWallet, error)
}

type walletRepository struct{}

func NewWalletRepository() WalletRepository {
	return &walletRepository{}
}

func (r *walletRepository) Create(ctx context.Context, data *entity.UserWallet) error {
	return xcontext.DB(ctx).Create(data).Error
}

func (r *walletRepository) GetByUserID(
	ctx context.Context, userID string,
) ([]entity.UserWallet, error) {
	result := []entity.UserWallet{}
	if err := xcontext.DB(ctx).Find(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *walletRepository) GetByAddress(
	ctx context.Context, userID, address string,
) (*entity.UserWallet, error) {
	result := &entity.UserWallet{}
	if err := xcontext.DB(ctx).
		Take(result, "user_id=? AND LOWER(address)=LOWER(?)", userID, address).Error; err != nil {
		return nil, err
	}

	return result, nil
}
