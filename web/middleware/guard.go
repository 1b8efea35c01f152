package middleware

import (
	"context"
	"net/url"

	"go.uber.org/zap"
)

// 导航目标
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Meta 路由的访问要求
type Meta struct {
	RequiresAuth  bool
	RequiresAdmin bool
}

// Session 守卫读取的会话状态
type Session interface {
	IsAuthenticated() bool
	Role() string
	IsAdmin() bool
	LoadProfile(ctx context.Context) error
	Logout()
}

// Outcome 守卫结论
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

// Decision 一次导航的结论，重定向时Location为目标地址
type Decision struct {
	Outcome  Outcome
	Location string
}

// Allowed 是否放行
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// Guard 导航守卫
type Guard struct {
	session Session
	logger  *zap.Logger
}

// NewGuard 创建导航守卫
func NewGuard(session Session, logger *zap.Logger) *Guard {
	return &Guard{session: session, logger: logger}
}

// BeforeEach 每次导航前调用
// 已登录但角色未知时先拉取资料，失败则登出；随后依次检查登录与管理员要求
func (g *Guard) BeforeEach(ctx context.Context, meta Meta, fullPath string) Decision {
	if g.session.IsAuthenticated() && g.session.Role() == "" {
		if err := g.session.LoadProfile(ctx); err != nil {
			g.logger.Warn("Profile load failed during navigation, logging out",
				zap.String("path", fullPath),
				zap.Error(err),
			)
			g.session.Logout()
		}
	}

	if meta.RequiresAuth && !g.session.IsAuthenticated() {
		return Decision{
			Outcome:  RedirectLogin,
			Location: LoginPath + "?redirect=" + url.QueryEscape(fullPath),
		}
	}
	if meta.RequiresAdmin && !g.session.IsAdmin() {
		return Decision{Outcome: RedirectHome, Location: HomePath}
	}
	return Decision{Outcome: Allow}
}
