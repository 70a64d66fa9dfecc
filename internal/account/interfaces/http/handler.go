package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/paperbroker/internal/account/application"
	"github.com/wyfcoding/paperbroker/internal/account/domain"
	"github.com/wyfcoding/paperbroker/pkg/logger"
)

// UserIDKey 认证中间件写入 gin context 的 key
const UserIDKey = "user_id"

// SessionCookie 会话 cookie 名
const SessionCookie = "session_token"

// AccountHandler HTTP 处理器
type AccountHandler struct {
	accounts *application.AccountService
}

// NewAccountHandler 创建 HTTP 处理器
func NewAccountHandler(accounts *application.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// RegisterRoutes 注册路由
func (h *AccountHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)
		api.GET("/check", h.CheckUsername)
	}
}

// AuthRequired 会话鉴权中间件：解析 token 并注入 user_id，核心操作只见 userID
func AuthRequired(accounts *application.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		userID, err := accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			logger.Error(c.Request.Context(), "failed to resolve session", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID 从 gin context 取出已认证的 userID
func CurrentUserID(c *gin.Context) uint {
	id, _ := c.Get(UserIDKey)
	userID, _ := id.(uint)
	return userID
}

func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(SessionCookie); err == nil && token != "" {
		return token
	}
	auth := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Confirmation string `json:"confirmation" binding:"required"`
}

// Register 注册用户
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.accounts.Register(c.Request.Context(), req.Username, req.Password, req.Confirmation)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		default:
			logger.Error(c.Request.Context(), "failed to register user", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		}
		return
	}

	c.SetCookie(SessionCookie, token, 0, "/", "", false, true)
	c.JSON(http.StatusCreated, gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"cash":     user.Cash,
		"token":    token,
	})
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid username and/or password"})
			return
		}
		logger.Error(c.Request.Context(), "failed to log in", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.SetCookie(SessionCookie, token, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"token":    token,
	})
}

// Logout 登出并销毁会话
func (h *AccountHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), sessionToken(c)); err != nil {
		logger.Error(c.Request.Context(), "failed to log out", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// CheckUsername 用户名可用性探测，返回布尔 JSON
func (h *AccountHandler) CheckUsername(c *gin.Context) {
	available, err := h.accounts.CheckUsername(c.Request.Context(), c.Query("username"))
	if err != nil {
		logger.Error(c.Request.Context(), "failed to check username", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check failed"})
		return
	}
	c.JSON(http.StatusOK, available)
}
