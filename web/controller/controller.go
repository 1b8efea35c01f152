package controller

import (
	"errors"
	"net/http"
	"strconv"

	"campus_market/api"
	"campus_market/handler"
	"campus_market/model"
	"campus_market/service"
	"campus_market/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConsoleController 本地控制台的页面视图与操作接口
type ConsoleController struct {
	app    *service.App
	logger *zap.Logger
}

// NewConsoleController 创建控制台控制器
func NewConsoleController(app *service.App) *ConsoleController {
	return &ConsoleController{app: app, logger: app.Logger.Named("console")}
}

func ok(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"data":    data,
		"message": message,
	})
}

func fail(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"code":    -1,
		"error":   err.Error(),
		"message": message,
	})
}

// failFrom 按错误类型选择状态码，服务端返回的状态码原样透传
func (ctl *ConsoleController) failFrom(c *gin.Context, err error, message string) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, store.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, handler.ErrTooManyRequests):
		status = http.StatusTooManyRequests
	case errors.Is(err, handler.ErrSoldOut), errors.Is(err, handler.ErrFlashSaleNotRunning):
		status = http.StatusConflict
	case api.StatusCode(err) > 0:
		status = api.StatusCode(err)
	}
	ctl.logger.Debug(message, zap.String("path", c.Request.URL.Path), zap.Error(err))
	fail(c, status, err, message)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, errors.New("invalid "+name), "Invalid ID")
		return 0, false
	}
	return id, true
}

// Home 首页：热门商品与排行
func (ctl *ConsoleController) Home(c *gin.Context) {
	ctx := c.Request.Context()
	if err := ctl.app.Goods.LoadHotGoods(ctx, 0); err != nil {
		ctl.failFrom(c, err, "Failed to load hot goods")
		return
	}
	if err := ctl.app.Goods.LoadRanking(ctx, c.Query("metric"), 0); err != nil {
		ctl.failFrom(c, err, "Failed to load ranking")
		return
	}
	ok(c, gin.H{
		"hot":     ctl.app.Goods.HotItems(),
		"ranking": ctl.app.Goods.RankingItems(),
	}, "Home loaded")
}

// GoodsList 公开商品列表，支持category、keyword、minPrice、maxPrice筛选
func (ctl *ConsoleController) GoodsList(c *gin.Context) {
	filter := &model.GoodsFilter{
		Category: c.Query("category"),
		Keyword:  c.Query("keyword"),
	}
	for key, target := range map[string]**decimal.Decimal{"minPrice": &filter.MinPrice, "maxPrice": &filter.MaxPrice} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, err, "Invalid "+key)
			return
		}
		*target = &v
	}

	if err := ctl.app.Goods.LoadGoods(c.Request.Context(), filter); err != nil {
		ctl.failFrom(c, err, "Failed to load goods")
		return
	}
	ok(c, ctl.app.Goods.Items(), "Goods loaded")
}

// GoodsDetail 商品详情，同时上报一次浏览
func (ctl *ConsoleController) GoodsDetail(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	ctx := c.Request.Context()
	if err := ctl.app.Goods.LoadGoodsByID(ctx, id); err != nil {
		ctl.failFrom(c, err, "Failed to load goods detail")
		return
	}
	ctl.app.Goods.RecordView(ctx, id)
	item, _ := ctl.app.Goods.Selected()
	ok(c, item, "Goods detail loaded")
}

// MyGoods 我发布的商品
func (ctl *ConsoleController) MyGoods(c *gin.Context) {
	if err := ctl.app.Goods.LoadMyGoods(c.Request.Context()); err != nil {
		ctl.failFrom(c, err, "Failed to load my goods")
		return
	}
	ok(c, ctl.app.Goods.MyItems(), "My goods loaded")
}

// AdminReview 待审核商品
func (ctl *ConsoleController) AdminReview(c *gin.Context) {
	if err := ctl.app.Goods.LoadPendingGoods(c.Request.Context()); err != nil {
		ctl.failFrom(c, err, "Failed to load pending goods")
		return
	}
	ok(c, ctl.app.Goods.PendingItems(), "Pending goods loaded")
}

// Orders 我的订单
func (ctl *ConsoleController) Orders(c *gin.Context) {
	if err := ctl.app.Orders.LoadOrders(c.Request.Context()); err != nil {
		ctl.failFrom(c, err, "Failed to load orders")
		return
	}
	ok(c, ctl.app.Orders.Orders(), "Orders loaded")
}

// Cart 购物车与合计
func (ctl *ConsoleController) Cart(c *gin.Context) {
	if err := ctl.app.Cart.LoadCart(c.Request.Context()); err != nil {
		ctl.failFrom(c, err, "Failed to load cart")
		return
	}
	ok(c, gin.H{
		"items":   ctl.app.Cart.Items(),
		"summary": ctl.app.Cart.Summary(),
	}, "Cart loaded")
}

// Chat 会话列表
func (ctl *ConsoleController) Chat(c *gin.Context) {
	if err := ctl.app.Chat.RefreshConversations(c.Request.Context()); err != nil {
		ctl.failFrom(c, err, "Failed to load conversations")
		return
	}
	ok(c, gin.H{
		"conversations": ctl.app.Chat.Conversations(),
		"unread":        ctl.app.Chat.TotalUnread(),
		"connected":     ctl.app.Chat.Connected(),
	}, "Conversations loaded")
}

// ChatMessages 与某人的历史消息
func (ctl *ConsoleController) ChatMessages(c *gin.Context) {
	partnerID, valid := paramID(c, "partnerId")
	if !valid {
		return
	}
	if err := ctl.app.Chat.LoadConversationMessages(c.Request.Context(), partnerID); err != nil {
		ctl.failFrom(c, err, "Failed to load messages")
		return
	}
	ok(c, ctl.app.Chat.Messages(partnerID), "Messages loaded")
}

// FlashSale 秒杀活动列表
func (ctl *ConsoleController) FlashSale(c *gin.Context) {
	if err := ctl.app.FlashSale.LoadItems(c.Request.Context()); err != nil {
		ctl.failFrom(c, err, "Failed to load flash sale items")
		return
	}
	ok(c, ctl.app.FlashSale.Items(), "Flash sale items loaded")
}

// Login 登录页：返回当前会话
func (ctl *ConsoleController) Login(c *gin.Context) {
	ok(c, ctl.app.Session.Snapshot(), "Session")
}

// Profile 个人中心
func (ctl *ConsoleController) Profile(c *gin.Context) {
	ok(c, gin.H{
		"session": ctl.app.Session.Snapshot(),
		"cart":    ctl.app.Cart.Summary(),
		"unread":  ctl.app.Chat.TotalUnread(),
	}, "Profile")
}

// Notifications 最近的错误提示
func (ctl *ConsoleController) Notifications(c *gin.Context) {
	ok(c, ctl.app.Notifier.Recent(), "Notifications")
}

type loginForm struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// DoLogin 登录
func (ctl *ConsoleController) DoLogin(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, err, "Username and password are required")
		return
	}
	if err := ctl.app.Session.Login(c.Request.Context(), form.Username, form.Password); err != nil {
		ctl.failFrom(c, err, "Login failed")
		return
	}
	ok(c, ctl.app.Session.Snapshot(), "Login successful")
}

// DoRegister 注册
func (ctl *ConsoleController) DoRegister(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, errors.New("invalid register request"), "Username and password are required")
		return
	}
	if err := ctl.app.Session.Register(c.Request.Context(), req); err != nil {
		ctl.failFrom(c, err, "Register failed")
		return
	}
	ok(c, ctl.app.Session.Snapshot(), "Register successful")
}

// DoLogout 登出
func (ctl *ConsoleController) DoLogout(c *gin.Context) {
	ctl.app.Session.Logout()
	ok(c, nil, "Logged out")
}

type cartForm struct {
	GoodsID  int64 `json:"goodsId" binding:"required"`
	Quantity int   `json:"quantity"`
}

// AddToCart 加入购物车
func (ctl *ConsoleController) AddToCart(c *gin.Context) {
	var form cartForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, err, "goodsId is required")
		return
	}
	item, err := ctl.app.Cart.AddToCart(c.Request.Context(), form.GoodsID, form.Quantity)
	if err != nil {
		ctl.failFrom(c, err, "Failed to add to cart")
		return
	}
	ok(c, item, "Added to cart")
}

// PurgeCart 清理已售出或已下架的条目
func (ctl *ConsoleController) PurgeCart(c *gin.Context) {
	removed, err := ctl.app.Cart.PurgeSoldItems(c.Request.Context())
	if err != nil {
		ctl.failFrom(c, err, "Failed to purge cart")
		return
	}
	ok(c, gin.H{"removed": removed}, "Cart purged")
}

type orderForm struct {
	GoodsID int64 `json:"goodsId" binding:"required"`
}

// SubmitOrder 下单
func (ctl *ConsoleController) SubmitOrder(c *gin.Context) {
	var form orderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, err, "goodsId is required")
		return
	}
	order, err := ctl.app.Orders.SubmitOrder(c.Request.Context(), form.GoodsID)
	if err != nil {
		ctl.failFrom(c, err, "Failed to submit order")
		return
	}
	ok(c, order, "Order submitted")
}

type statusForm struct {
	Status string `json:"status" binding:"required"`
}

// ChangeOrderStatus 修改订单状态
func (ctl *ConsoleController) ChangeOrderStatus(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var form statusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, err, "status is required")
		return
	}
	order, err := ctl.app.Orders.ChangeStatus(c.Request.Context(), id, form.Status)
	if err != nil {
		ctl.failFrom(c, err, "Failed to change order status")
		return
	}
	ok(c, order, "Order status changed")
}

// ReviewGoods 管理员审核商品
func (ctl *ConsoleController) ReviewGoods(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var form statusForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, err, "status is required")
		return
	}
	if form.Status != model.GoodsStatusApproved && form.Status != model.GoodsStatusRejected {
		fail(c, http.StatusBadRequest, errors.New("invalid status "+form.Status), "Status must be APPROVED or REJECTED")
		return
	}
	item, err := ctl.app.Goods.ReviewGoods(c.Request.Context(), id, form.Status)
	if err != nil {
		ctl.failFrom(c, err, "Failed to review goods")
		return
	}
	ok(c, item, "Goods reviewed")
}

type messageForm struct {
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

// SendMessage 发送聊天消息，空白内容不发送
func (ctl *ConsoleController) SendMessage(c *gin.Context) {
	partnerID, valid := paramID(c, "partnerId")
	if !valid {
		return
	}
	var form messageForm
	if err := c.ShouldBindJSON(&form); err != nil {
		fail(c, http.StatusBadRequest, err, "Invalid message")
		return
	}
	msg, err := ctl.app.Chat.SendMessage(c.Request.Context(), partnerID, form.Content, form.MessageType)
	if err != nil {
		ctl.failFrom(c, err, "Failed to send message")
		return
	}
	if msg == nil {
		ok(c, nil, "Empty message ignored")
		return
	}
	ok(c, msg, "Message sent")
}

// MarkRead 标记与某人的消息为已读
func (ctl *ConsoleController) MarkRead(c *gin.Context) {
	partnerID, valid := paramID(c, "partnerId")
	if !valid {
		return
	}
	if err := ctl.app.Chat.MarkPartnerMessagesRead(c.Request.Context(), partnerID); err != nil {
		ctl.failFrom(c, err, "Failed to mark messages read")
		return
	}
	ok(c, nil, "Messages marked read")
}

// Purchase 秒杀抢购
func (ctl *ConsoleController) Purchase(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	result, err := ctl.app.FlashSale.Purchase(c.Request.Context(), id)
	if err != nil {
		ctl.failFrom(c, err, "Purchase failed")
		return
	}
	ok(c, result, "Purchase successful")
}
