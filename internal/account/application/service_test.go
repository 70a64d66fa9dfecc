package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/paperbroker/internal/account/domain"
)

// fakeUserRepo 内存用户仓储
type fakeUserRepo struct {
	nextID uint
	users  map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	if _, ok := r.users[user.Username]; ok {
		return domain.ErrUsernameTaken
	}
	user.ID = r.nextID
	r.nextID++
	copied := *user
	r.users[user.Username] = &copied
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id uint) (*domain.User, error) {
	for _, user := range r.users {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetForUpdate(ctx context.Context, id uint) (*domain.User, error) {
	return r.Get(ctx, id)
}

func (r *fakeUserRepo) UpdateCash(ctx context.Context, id uint, cash decimal.Decimal) error {
	for _, user := range r.users {
		if user.ID == id {
			user.Cash = cash
			return nil
		}
	}
	return domain.ErrUserNotFound
}

// fakeSessionRepo 内存会话仓储
type fakeSessionRepo struct {
	sessions map[string]uint
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]uint)}
}

func (r *fakeSessionRepo) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	r.sessions[token] = userID
	return nil
}

func (r *fakeSessionRepo) Get(ctx context.Context, token string) (uint, error) {
	return r.sessions[token], nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, token string) error {
	delete(r.sessions, token)
	return nil
}

func newTestService() (*AccountService, *fakeUserRepo, *fakeSessionRepo) {
	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	return NewAccountService(users, sessions, time.Hour), users, sessions
}

func TestRegisterCreatesUserWithDefaultCash(t *testing.T) {
	svc, _, _ := newTestService()

	user, token, err := svc.Register(context.Background(), "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("username = %q, want alice", user.Username)
	}
	if !user.Cash.Equal(domain.DefaultCash) {
		t.Errorf("cash = %s, want %s", user.Cash, domain.DefaultCash)
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Errorf("password stored without hashing")
	}
	if token == "" {
		t.Error("expected a session token")
	}

	// 注册即登录
	userID, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if userID != user.ID {
		t.Errorf("authenticated userID = %d, want %d", userID, user.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name         string
		username     string
		password     string
		confirmation string
	}{
		{"empty username", "", "secret", "secret"},
		{"empty password", "alice", "", ""},
		{"mismatched confirmation", "alice", "secret", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			_, _, err := svc.Register(context.Background(), tt.username, tt.password, tt.confirmation)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()

	if _, _, err := svc.Register(context.Background(), "alice", "secret", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, _, err := svc.Register(context.Background(), "alice", "other", "other")
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("err = %v, want ErrUsernameTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()
	registered, _, err := svc.Register(context.Background(), "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	user, token, err := svc.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("user ID = %d, want %d", user.ID, registered.ID)
	}
	if token == "" {
		t.Error("expected a session token")
	}

	if _, _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(context.Background(), "bob", "secret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	svc, _, _ := newTestService()
	_, token, err := svc.Register(context.Background(), "alice", "secret", "secret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	userID, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if userID != 0 {
		t.Errorf("authenticated userID = %d after logout, want 0", userID)
	}
}

func TestCheckUsername(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.Register(context.Background(), "alice", "secret", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	available, err := svc.CheckUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("CheckUsername: %v", err)
	}
	if available {
		t.Error("alice should not be available")
	}

	available, err = svc.CheckUsername(context.Background(), "bob")
	if err != nil {
		t.Fatalf("CheckUsername: %v", err)
	}
	if !available {
		t.Error("bob should be available")
	}

	available, err = svc.CheckUsername(context.Background(), "")
	if err != nil {
		t.Fatalf("CheckUsername: %v", err)
	}
	if available {
		t.Error("empty username should not be available")
	}
}
