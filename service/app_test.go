package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"campus_market/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newMarketBackend 模拟登录、资料与会话列表接口
func newMarketBackend(t *testing.T, conversationCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": "token-alice", "role": "USER", "nickname": "Alice"})
	})
	r.GET("/api/auth/profile", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer token-alice" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "expired"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": 1, "nickname": "Alice", "role": "USER"})
	})
	r.GET("/api/chat/conversations", func(c *gin.Context) {
		conversationCalls.Add(1)
		c.JSON(http.StatusOK, []gin.H{{
			"partnerId":          2,
			"partnerNickname":    "Bob",
			"lastMessageContent": "hi",
			"messageType":        "TEXT",
			"lastMessageAt":      "2024-05-01T10:00:00",
			"unreadCount":        1,
		}})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.BaseURL = baseURL + "/api"
	cfg.API.Timeout = 2 * time.Second
	cfg.Realtime.Endpoint = "ws://127.0.0.1:1/ws"
	cfg.Realtime.ReconnectDelay = 20 * time.Millisecond
	cfg.Session.FilePath = filepath.Join(t.TempDir(), "token")
	return cfg
}

func TestApp_LoginConnectsChatAndLogoutClears(t *testing.T) {
	var calls atomic.Int32
	srv := newMarketBackend(t, &calls)
	cfg := newTestConfig(t, srv.URL)

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Start(context.Background()))
	assert.False(t, app.Session.IsAuthenticated())

	require.NoError(t, app.Session.Login(context.Background(), "alice", "secret"))
	assert.Equal(t, int64(1), app.Session.UserID())

	assert.Eventually(t, func() bool {
		return len(app.Chat.Conversations()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, app.Chat.TotalUnread())

	data, err := os.ReadFile(cfg.Session.FilePath)
	require.NoError(t, err)
	assert.Equal(t, "token-alice", string(data))

	app.Session.Logout()
	assert.Empty(t, app.Chat.Conversations())
	assert.False(t, app.Realtime.Connected())
	_, err = os.Stat(cfg.Session.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestApp_StartRestoresPersistedToken(t *testing.T) {
	var calls atomic.Int32
	srv := newMarketBackend(t, &calls)
	cfg := newTestConfig(t, srv.URL)
	require.NoError(t, os.WriteFile(cfg.Session.FilePath, []byte("token-alice"), 0o600))

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Start(context.Background()))
	assert.True(t, app.Session.IsAuthenticated())
	assert.Equal(t, "Alice", app.Session.Snapshot().Nickname)
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestApp_StartDropsRejectedToken(t *testing.T) {
	var calls atomic.Int32
	srv := newMarketBackend(t, &calls)
	cfg := newTestConfig(t, srv.URL)
	require.NoError(t, os.WriteFile(cfg.Session.FilePath, []byte("stale"), 0o600))

	app, err := NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.Start(context.Background()))
	assert.False(t, app.Session.IsAuthenticated())
	assert.Empty(t, app.Chat.Conversations())
	assert.NotEmpty(t, app.Notifier.Recent())
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	var calls atomic.Int32
	srv := newMarketBackend(t, &calls)
	app, err := NewApp(context.Background(), newTestConfig(t, srv.URL), zap.NewNop())
	require.NoError(t, err)

	assert.NoError(t, app.Close())
	assert.NoError(t, app.Close())
}
