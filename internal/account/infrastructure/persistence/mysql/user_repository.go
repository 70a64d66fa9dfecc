// Package mysql 提供了用户仓储接口的 MySQL GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"

	driver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/paperbroker/internal/account/domain"
	"github.com/wyfcoding/paperbroker/pkg/db"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// userRepositoryImpl 是 domain.UserRepository 接口的 GORM 实现。
type userRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(gdb *gorm.DB) domain.UserRepository {
	return &userRepositoryImpl{db: gdb}
}

// isDuplicateKey 识别唯一索引冲突。
// 同时匹配 gorm 翻译后的哨兵错误与未翻译的 MySQL 1062 驱动错误
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *driver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// Create 实现 domain.UserRepository.Create
func (r *userRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if err := db.FromContext(ctx, r.db).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return domain.ErrUsernameTaken
		}
		logger.Error(ctx, "user_repository.create failed", "username", user.Username, "error", err)
		return fmt.Errorf("%w: create: %v", domain.ErrStorage, err)
	}
	return nil
}

// Get 实现 domain.UserRepository.Get
func (r *userRepositoryImpl) Get(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := db.FromContext(ctx, r.db).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		logger.Error(ctx, "user_repository.get failed", "user_id", id, "error", err)
		return nil, fmt.Errorf("%w: get: %v", domain.ErrStorage, err)
	}
	return &user, nil
}

// GetByUsername 实现 domain.UserRepository.GetByUsername
func (r *userRepositoryImpl) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := db.FromContext(ctx, r.db).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		logger.Error(ctx, "user_repository.get_by_username failed", "username", username, "error", err)
		return nil, fmt.Errorf("%w: get_by_username: %v", domain.ErrStorage, err)
	}
	return &user, nil
}

// GetForUpdate 实现 domain.UserRepository.GetForUpdate，SELECT ... FOR UPDATE
func (r *userRepositoryImpl) GetForUpdate(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := db.FromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		logger.Error(ctx, "user_repository.get_for_update failed", "user_id", id, "error", err)
		return nil, fmt.Errorf("%w: get_for_update: %v", domain.ErrStorage, err)
	}
	return &user, nil
}

// UpdateCash 实现 domain.UserRepository.UpdateCash
func (r *userRepositoryImpl) UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error {
	err := db.FromContext(ctx, r.db).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("cash", cash).Error
	if err != nil {
		logger.Error(ctx, "user_repository.update_cash failed", "user_id", id, "error", err)
		return fmt.Errorf("%w: update_cash: %v", domain.ErrStorage, err)
	}
	return nil
}
