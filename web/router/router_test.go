package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"campus_market/config"
	"campus_market/model"
	"campus_market/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend 模拟市场服务端，记录关键接口的调用次数
type fakeBackend struct {
	goodsLoads atomic.Int32
	mineLoads  atomic.Int32
	reads      atomic.Int32
	purchases  atomic.Int32
	unread     atomic.Int32
}

func newBackend(t *testing.T) (*httptest.Server, *fakeBackend) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fb := &fakeBackend{}
	fb.unread.Store(2)
	now := time.Now()

	r := gin.New()
	r.POST("/api/auth/login", func(c *gin.Context) {
		var req model.LoginRequest
		_ = c.ShouldBindJSON(&req)
		if req.Username == "root" {
			c.JSON(http.StatusOK, gin.H{"token": "tok-admin", "role": "ADMIN", "nickname": "Root"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": "tok-user", "role": "USER", "nickname": "Alice"})
	})
	r.GET("/api/auth/profile", func(c *gin.Context) {
		if c.GetHeader("Authorization") == "Bearer tok-admin" {
			c.JSON(http.StatusOK, gin.H{"id": 2, "nickname": "Root", "role": "ADMIN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": 1, "nickname": "Alice", "role": "USER"})
	})

	r.GET("/api/chat/conversations", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{
			"partnerId":          42,
			"partnerNickname":    "Bob",
			"lastMessageContent": "还在吗",
			"lastMessageAt":      now.Add(-time.Minute).Format(time.RFC3339),
			"unreadCount":        fb.unread.Load(),
		}})
	})
	r.POST("/api/chat/messages", func(c *gin.Context) {
		var req model.SendChatMessageRequest
		_ = c.ShouldBindJSON(&req)
		c.JSON(http.StatusOK, gin.H{
			"id":          500,
			"senderId":    1,
			"receiverId":  req.ReceiverID,
			"content":     req.Content,
			"messageType": req.MessageType,
			"timestamp":   time.Now().Format(time.RFC3339),
		})
	})
	r.POST("/api/chat/read/:partnerId", func(c *gin.Context) {
		fb.reads.Add(1)
		fb.unread.Store(0)
		c.Status(http.StatusOK)
	})

	r.GET("/api/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{
			{"id": 11, "goodsId": 5, "quantity": 1, "goodsPrice": 9.5, "goodsStatus": "APPROVED"},
			{"id": 12, "goodsId": 6, "quantity": 1, "goodsPrice": 20, "goodsStatus": "APPROVED", "goodsSold": true},
		})
	})
	r.POST("/api/cart", func(c *gin.Context) {
		var req model.CartItemRequest
		_ = c.ShouldBindJSON(&req)
		c.JSON(http.StatusOK, gin.H{"id": 13, "goodsId": req.GoodsID, "quantity": req.Quantity, "goodsPrice": 3, "goodsStatus": "APPROVED"})
	})
	r.DELETE("/api/cart/sold", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"removed": 1})
	})

	r.GET("/api/orders", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 9, "goodsId": 7, "status": "PENDING_PAYMENT"}})
	})
	r.POST("/api/orders", func(c *gin.Context) {
		var req model.OrderCreateRequest
		_ = c.ShouldBindJSON(&req)
		if req.GoodsID == 404 {
			c.JSON(http.StatusBadRequest, gin.H{"message": "商品已售出"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": 10, "goodsId": req.GoodsID, "status": "PENDING_PAYMENT"})
	})
	r.PATCH("/api/orders/:id", func(c *gin.Context) {
		var req model.OrderUpdateStatusRequest
		_ = c.ShouldBindJSON(&req)
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		c.JSON(http.StatusOK, gin.H{"id": id, "goodsId": 7, "status": req.Status})
	})

	r.GET("/api/goods", func(c *gin.Context) {
		fb.goodsLoads.Add(1)
		c.JSON(http.StatusOK, []gin.H{{"id": 7, "title": "台灯", "price": 19.9, "status": "APPROVED"}})
	})
	r.GET("/api/goods/mine", func(c *gin.Context) {
		fb.mineLoads.Add(1)
		c.JSON(http.StatusOK, []gin.H{})
	})
	r.GET("/api/goods/pending", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 8, "title": "自行车", "price": 200, "status": "PENDING_REVIEW"}})
	})
	r.GET("/api/goods/:id", func(c *gin.Context) {
		if c.Param("id") == "404" {
			c.JSON(http.StatusNotFound, gin.H{"message": "商品不存在"})
			return
		}
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		c.JSON(http.StatusOK, gin.H{"id": id, "title": "台灯", "status": "APPROVED"})
	})
	r.PUT("/api/goods/:id/review", func(c *gin.Context) {
		var req model.GoodsReviewRequest
		_ = c.ShouldBindJSON(&req)
		id, _ := strconv.ParseInt(c.Param("id"), 10, 64)
		c.JSON(http.StatusOK, gin.H{"id": id, "title": "自行车", "price": 200, "status": req.Status})
	})

	r.GET("/api/flash-sale/items", func(c *gin.Context) {
		start := now.Add(-time.Hour).Format(time.RFC3339)
		end := now.Add(time.Hour).Format(time.RFC3339)
		c.JSON(http.StatusOK, []gin.H{
			{"id": 1, "title": "耳机", "status": "RUNNING", "totalStock": 5, "remainingStock": 5, "startTime": start, "endTime": end},
			{"id": 2, "title": "键盘", "status": "RUNNING", "totalStock": 5, "remainingStock": 0, "startTime": start, "endTime": end},
		})
	})
	r.POST("/api/flash-sale/purchase", func(c *gin.Context) {
		fb.purchases.Add(1)
		c.JSON(http.StatusOK, gin.H{"orderId": 77, "message": "抢购成功"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, fb
}

func newConsole(t *testing.T) (*gin.Engine, *service.App, *fakeBackend) {
	t.Helper()
	srv, fb := newBackend(t)
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.API.Timeout = 2 * time.Second
	cfg.Realtime.Endpoint = "ws://127.0.0.1:1/ws"
	cfg.Realtime.ReconnectDelay = 20 * time.Millisecond
	cfg.Session.FilePath = filepath.Join(t.TempDir(), "token")
	// 令牌桶只放行一次抢购
	cfg.FlashSale.PurchaseRPS = 0.01
	cfg.FlashSale.Burst = 1

	app, err := service.NewApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return InitRouter(app), app, fb
}

func serve(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

// decode 校验成功响应并解析data字段
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Code    int             `json:"code"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.Zero(t, env.Code)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
}

func login(t *testing.T, r *gin.Engine, username string) {
	t.Helper()
	w := serve(r, http.MethodPost, "/api/login", `{"username":"`+username+`","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func cartIDs(items []model.CartItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func goodsIDs(items []model.Goods) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func TestRoutes_TableMatchesNavigationRules(t *testing.T) {
	byName := make(map[string]Route)
	for _, r := range Routes() {
		byName[r.Name] = r
	}
	assert.False(t, byName["home"].Meta.RequiresAuth)
	assert.False(t, byName["goods-detail"].Meta.RequiresAuth)
	assert.True(t, byName["goods-mine"].Meta.RequiresAuth)
	assert.True(t, byName["orders"].Meta.RequiresAuth)
	assert.True(t, byName["profile"].Meta.RequiresAuth)
	assert.True(t, byName["admin-review"].Meta.RequiresAdmin)
	assert.False(t, byName["login"].Meta.RequiresAuth)
}

func TestConsole_LoginThenAdminRouteRedirectsHome(t *testing.T) {
	r, app, _ := newConsole(t)

	w := serve(r, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Forders", w.Header().Get("Location"))

	w = serve(r, http.MethodPost, "/api/login", `{"username":"alice","password":"secret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, app.Session.IsAuthenticated())
	assert.Equal(t, "USER", app.Session.Role())

	w = serve(r, http.MethodGet, "/admin/review", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = serve(r, http.MethodGet, "/orders", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(9), resp.Data[0].ID)
}

func TestConsole_ActionsRequireLogin(t *testing.T) {
	r, _, _ := newConsole(t)

	w := serve(r, http.MethodPost, "/api/cart", `{"goodsId":5,"quantity":2}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/login", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsole_BackendErrorsSurfaceAsNotifications(t *testing.T) {
	r, _, _ := newConsole(t)

	w := serve(r, http.MethodGet, "/goods/404", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "商品不存在")
}

func TestConsole_InvalidID(t *testing.T) {
	r, _, _ := newConsole(t)
	w := serve(r, http.MethodGet, "/goods/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsole_CartAddAndPurge(t *testing.T) {
	r, app, _ := newConsole(t)
	login(t, r, "alice")

	decode(t, serve(r, http.MethodGet, "/cart", ""), nil)
	require.Equal(t, []int64{11, 12}, cartIDs(app.Cart.Items()))

	var added model.CartItem
	decode(t, serve(r, http.MethodPost, "/api/cart", `{"goodsId":9,"quantity":2}`), &added)
	assert.Equal(t, int64(9), added.GoodsID)
	assert.Equal(t, 2, added.Quantity)
	assert.ElementsMatch(t, []int64{11, 12, 13}, cartIDs(app.Cart.Items()))

	var purged struct {
		Removed int `json:"removed"`
	}
	decode(t, serve(r, http.MethodDelete, "/api/cart/sold", ""), &purged)
	assert.Equal(t, 1, purged.Removed)
	assert.ElementsMatch(t, []int64{11, 13}, cartIDs(app.Cart.Items()))

	w := serve(r, http.MethodPost, "/api/cart", `{"quantity":2}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConsole_SubmitOrderReloadsGoods(t *testing.T) {
	r, app, fb := newConsole(t)
	login(t, r, "alice")

	var order model.Order
	decode(t, serve(r, http.MethodPost, "/api/orders", `{"goodsId":7}`), &order)
	assert.Equal(t, int64(10), order.ID)
	require.NotEmpty(t, app.Orders.Orders())
	assert.Equal(t, int64(10), app.Orders.Orders()[0].ID)
	assert.Equal(t, int32(1), fb.goodsLoads.Load())
	assert.Equal(t, int32(1), fb.mineLoads.Load())
	assert.Equal(t, []int64{7}, goodsIDs(app.Goods.Items()))

	decode(t, serve(r, http.MethodPatch, "/api/orders/10", `{"status":"CANCELED"}`), &order)
	assert.Equal(t, model.OrderStatusCanceled, order.Status)
	assert.Equal(t, int32(2), fb.goodsLoads.Load(), "cancel reloads goods")

	// 服务端的状态码原样透传
	w := serve(r, http.MethodPost, "/api/orders", `{"goodsId":404}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":-1`)
	assert.Equal(t, int32(2), fb.goodsLoads.Load())
}

func TestConsole_AdminReviewMovesGoodsIntoCatalog(t *testing.T) {
	r, app, _ := newConsole(t)

	login(t, r, "alice")
	w := serve(r, http.MethodPut, "/api/admin/goods/8/review", `{"status":"APPROVED"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	decode(t, serve(r, http.MethodPost, "/api/logout", ""), nil)

	login(t, r, "root")
	require.True(t, app.Session.IsAdmin())
	decode(t, serve(r, http.MethodGet, "/admin/review", ""), nil)
	require.Equal(t, []int64{8}, goodsIDs(app.Goods.PendingItems()))

	w = serve(r, http.MethodPut, "/api/admin/goods/8/review", `{"status":"SOLD"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var item model.Goods
	decode(t, serve(r, http.MethodPut, "/api/admin/goods/8/review", `{"status":"APPROVED"}`), &item)
	assert.Equal(t, model.GoodsStatusApproved, item.Status)
	assert.Empty(t, app.Goods.PendingItems())
	assert.Equal(t, []int64{8}, goodsIDs(app.Goods.Items()))
}

func TestConsole_ChatSendAndMarkRead(t *testing.T) {
	r, app, fb := newConsole(t)
	login(t, r, "alice")
	// 等待登录后的后台会话刷新落地
	require.Eventually(t, func() bool {
		_, ok := app.Chat.Conversation(42)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	decode(t, serve(r, http.MethodGet, "/chat", ""), nil)
	meta, ok := app.Chat.Conversation(42)
	require.True(t, ok)
	require.Equal(t, 2, meta.UnreadCount)

	var msg model.ChatMessage
	decode(t, serve(r, http.MethodPost, "/api/chat/42/messages", `{"content":"  在的  "}`), &msg)
	assert.Equal(t, "在的", msg.Content)
	assert.Equal(t, model.MessageTypeText, msg.MessageType)
	assert.Len(t, app.Chat.Messages(42), 1)

	w := serve(r, http.MethodPost, "/api/chat/42/messages", `{"content":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Empty message ignored")
	assert.Len(t, app.Chat.Messages(42), 1)

	decode(t, serve(r, http.MethodPost, "/api/chat/42/read", ""), nil)
	assert.Equal(t, int32(1), fb.reads.Load())
	meta, _ = app.Chat.Conversation(42)
	assert.Zero(t, meta.UnreadCount)

	// 已无未读时不再请求
	decode(t, serve(r, http.MethodPost, "/api/chat/42/read", ""), nil)
	assert.Equal(t, int32(1), fb.reads.Load())
}

func TestConsole_FlashSalePurchaseStatusMapping(t *testing.T) {
	r, app, fb := newConsole(t)
	login(t, r, "alice")

	decode(t, serve(r, http.MethodGet, "/flash-sale", ""), nil)
	require.Len(t, app.FlashSale.Items(), 2)

	var result model.FlashSalePurchaseResult
	decode(t, serve(r, http.MethodPost, "/api/flash-sale/1/purchase", ""), &result)
	assert.Equal(t, int64(77), result.OrderID)
	assert.Equal(t, int32(1), fb.purchases.Load())

	w := serve(r, http.MethodPost, "/api/flash-sale/1/purchase", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = serve(r, http.MethodPost, "/api/flash-sale/2/purchase", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(1), fb.purchases.Load())
}
