package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus_market/model"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// ErrNotAuthenticated 需要登录的操作在未登录时调用
var ErrNotAuthenticated = errors.New("not authenticated")

// AuthService 会话存储依赖的认证接口
type AuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error)
	Profile(ctx context.Context) (model.Profile, error)
}

// TokenPersister 令牌持久化，令牌不存在时Load返回空串
type TokenPersister interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Session 会话快照
type Session struct {
	Token         string `json:"-"`
	Authenticated bool   `json:"authenticated"`
	UserID        int64  `json:"userId,omitempty"`
	Nickname      string `json:"nickname"`
	Role          string `json:"role"`
	Phone         string `json:"phone,omitempty"`
}

// SessionStore 当前用户会话
// 令牌非空即视为已登录；令牌变化时通知订阅者
type SessionStore struct {
	auth   AuthService
	tokens TokenPersister
	logger *zap.Logger

	// notifyMu 保证订阅者按状态变化的顺序收到通知
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	token     string
	userID    int64
	nickname  string
	role      string
	phone     string
	listeners map[int]func(token string)
	nextID    int

	persistTimeout time.Duration
	now            func() time.Time
}

// NewSessionStore 创建会话存储，tokens可为nil（不持久化）
func NewSessionStore(auth AuthService, tokens TokenPersister, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		auth:           auth,
		tokens:         tokens,
		logger:         logger,
		listeners:      make(map[int]func(string)),
		persistTimeout: 3 * time.Second,
		now:            time.Now,
	}
}

// Subscribe 订阅令牌变化，返回取消订阅函数
// 回调在触发变化的goroutine中同步且按变化顺序执行，不能再调用会话存储的写方法
func (s *SessionStore) Subscribe(fn func(token string)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Init 启动时从持久化中恢复令牌并刷新资料
// 已过期的JWT直接登出；资料加载失败同样登出，不向调用方返回
func (s *SessionStore) Init(ctx context.Context) error {
	if s.tokens == nil {
		return nil
	}
	token, err := s.tokens.Load(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return nil
	}

	s.update(func() {
		s.token = token
	})

	if tokenExpired(token, s.now()) {
		s.logger.Info("Stored token expired, logging out")
		s.Logout()
		return nil
	}

	if err := s.LoadProfile(ctx); err != nil {
		s.logger.Warn("Failed to restore session", zap.Error(err))
		s.Logout()
	}
	return nil
}

// Login 登录并加载资料
func (s *SessionStore) Login(ctx context.Context, username, password string) error {
	resp, err := s.auth.Login(ctx, model.LoginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	return s.establish(ctx, resp)
}

// Register 注册成功后直接进入登录态
func (s *SessionStore) Register(ctx context.Context, req model.RegisterRequest) error {
	resp, err := s.auth.Register(ctx, req)
	if err != nil {
		return err
	}
	return s.establish(ctx, resp)
}

func (s *SessionStore) establish(ctx context.Context, resp model.AuthResponse) error {
	s.update(func() {
		s.token = resp.Token
		s.role = resp.Role
		s.nickname = resp.Nickname
	})
	s.persist(ctx, resp.Token)
	return s.LoadProfile(ctx)
}

// LoadProfile 拉取资料并覆盖本地身份字段，未登录时什么也不做
// 请求期间令牌被清空或切换时丢弃结果
func (s *SessionStore) LoadProfile(ctx context.Context) error {
	token := s.Token()
	if token == "" {
		return nil
	}
	profile, err := s.auth.Profile(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != token {
		s.logger.Debug("Token changed during profile load, dropping result")
		return nil
	}
	s.userID = profile.ID
	s.nickname = profile.Nickname
	s.role = profile.Role
	s.phone = profile.Phone
	return nil
}

// Logout 清空会话与持久化的令牌，可重复调用
func (s *SessionStore) Logout() {
	s.update(func() {
		s.token = ""
		s.userID = 0
		s.nickname = ""
		s.role = ""
		s.phone = ""
	})
	if s.tokens == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Warn("Failed to clear stored token", zap.Error(err))
	}
}

// update 在锁内修改状态，令牌变化时在状态锁外通知订阅者
// 通知完成前后续的修改会等待，并发登录登出时订阅者看到的顺序与状态一致
func (s *SessionStore) update(fn func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	before := s.token
	fn()
	after := s.token
	var listeners []func(string)
	if before != after {
		listeners = make([]func(string), 0, len(s.listeners))
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(after)
	}
}

func (s *SessionStore) persist(ctx context.Context, token string) {
	if s.tokens == nil {
		return
	}
	if err := s.tokens.Save(ctx, token); err != nil {
		s.logger.Warn("Failed to persist token", zap.Error(err))
	}
}

// Token 当前令牌
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated 令牌非空
func (s *SessionStore) IsAuthenticated() bool {
	return s.Token() != ""
}

// UserID 当前用户ID，资料未加载时为0
func (s *SessionStore) UserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Role 当前角色
func (s *SessionStore) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// IsAdmin 是否管理员
func (s *SessionStore) IsAdmin() bool {
	return s.Role() == model.RoleAdmin
}

// Snapshot 返回会话快照
func (s *SessionStore) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{
		Token:         s.token,
		Authenticated: s.token != "",
		UserID:        s.userID,
		Nickname:      s.nickname,
		Role:          s.role,
		Phone:         s.phone,
	}
}

// tokenExpired 不校验签名，只读取exp；非JWT令牌视为未过期
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
