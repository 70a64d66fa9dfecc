// 包 domain 用户账户的领域模型
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStorage 账户存储不可用
	ErrStorage = errors.New("account storage unavailable")
)

// DefaultCash 新用户的初始资金
var DefaultCash = decimal.NewFromInt(10000)

// User 用户账户
// Cash 只允许交易引擎修改，注册后任何路径都不得使其为负
type User struct {
	gorm.Model
	// 用户名，全局唯一
	Username string `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	// 密码哈希，由认证层负责生成与校验
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	// 现金余额
	Cash decimal.Decimal `gorm:"column:cash;type:decimal(20,4);not null" json:"cash"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// NewUser 创建带初始资金的用户
func NewUser(username, passwordHash string) *User {
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Cash:         DefaultCash,
	}
}

// UserRepository 用户仓储接口
type UserRepository interface {
	// Create 创建用户；用户名冲突返回 ErrUsernameTaken
	Create(ctx context.Context, user *User) error
	// Get 按 ID 获取用户；不存在返回 ErrUserNotFound
	Get(ctx context.Context, id uint) (*User, error)
	// GetByUsername 按用户名获取用户；不存在返回 ErrUserNotFound
	GetByUsername(ctx context.Context, username string) (*User, error)
	// GetForUpdate 在事务内按 ID 加行锁读取用户
	GetForUpdate(ctx context.Context, id uint) (*User, error)
	// UpdateCash 更新现金余额
	UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error
}

// SessionRepository 会话存储接口，由认证胶水层使用，核心逻辑不感知会话
type SessionRepository interface {
	Save(ctx context.Context, token string, userID uint, ttl time.Duration) error
	// Get 返回 token 对应的用户 ID；不存在或过期返回 0
	Get(ctx context.Context, token string) (uint, error)
	Delete(ctx context.Context, token string) error
}
