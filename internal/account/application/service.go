package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wyfcoding/paperbroker/internal/account/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// ErrValidation 请求形状不合法（空用户名、空密码、确认密码不一致）
var ErrValidation = errors.New("invalid registration input")

// AccountService 账户应用服务：注册、登录、会话管理。
// 核心交易逻辑不经过这里，只拿到已认证的 userID
type AccountService struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	sessionTTL time.Duration
}

// NewAccountService 创建账户应用服务
func NewAccountService(users domain.UserRepository, sessions domain.SessionRepository, sessionTTL time.Duration) *AccountService {
	return &AccountService{
		users:      users,
		sessions:   sessions,
		sessionTTL: sessionTTL,
	}
}

// Register 注册用户并直接建立会话
func (s *AccountService) Register(ctx context.Context, username, password, confirmation string) (*domain.User, string, error) {
	if username == "" {
		return nil, "", fmt.Errorf("%w: username is required", ErrValidation)
	}
	if password == "" {
		return nil, "", fmt.Errorf("%w: password is required", ErrValidation)
	}
	if password != confirmation {
		return nil, "", fmt.Errorf("%w: passwords do not match", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := domain.NewUser(username, string(hash))
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	logger.Info(ctx, "user registered", "user_id", user.ID, "username", username)
	return user, token, nil
}

// Login 校验口令并建立会话
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	if username == "" || password == "" {
		return nil, "", domain.ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	logger.Info(ctx, "user logged in", "user_id", user.ID)
	return user, token, nil
}

// Logout 销毁会话
func (s *AccountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate 将会话 token 解析为 userID；无效会话返回 0
func (s *AccountService) Authenticate(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, nil
	}
	return s.sessions.Get(ctx, token)
}

// CheckUsername 用户名可用性探测（注册表单的异步校验）
func (s *AccountService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	_, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// GetUser 按 ID 获取用户
func (s *AccountService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return s.users.Get(ctx, id)
}

func (s *AccountService) createSession(ctx context.Context, userID uint) (string, error) {
	token := uuid.New().String()
	if err := s.sessions.Save(ctx, token, userID, s.sessionTTL); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	return token, nil
}
