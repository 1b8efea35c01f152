package model

import (
	"github.com/shopspring/decimal"
)

func init() {
	// 金额字段统一用decimal.Decimal；服务端按BigDecimal解析价格，数字形式输出
	decimal.MarshalJSONWithoutQuotes = true
}

// 商品审核状态
const (
	GoodsStatusPendingReview = "PENDING_REVIEW" // 待审核
	GoodsStatusApproved      = "APPROVED"       // 审核通过，出现在公开商品列表
	GoodsStatusRejected      = "REJECTED"       // 审核驳回
)

// 订单状态（服务端为自由文本，这里列出已知取值）
const (
	OrderStatusPendingPayment  = "PENDING_PAYMENT"
	OrderStatusPendingShipment = "PENDING_SHIPMENT"
	OrderStatusPendingReceive  = "PENDING_RECEIVE"
	OrderStatusCompleted       = "COMPLETED"
	OrderStatusCanceled        = "CANCELED"
)

// 聊天消息类型
const (
	MessageTypeText  = "TEXT"
	MessageTypeImage = "IMAGE"
)

// 秒杀活动状态
const (
	FlashSaleScheduled = "SCHEDULED"
	FlashSaleRunning   = "RUNNING"
	FlashSaleEnded     = "ENDED"
)

// 用户角色
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// AuthResponse 登录/注册返回
type AuthResponse struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Nickname string `json:"nickname"`
}

// Profile 当前用户资料
type Profile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
}

// Goods 商品信息
type Goods struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity,omitempty"`
	CoverImageURL  string          `json:"coverImageUrl,omitempty"`
	PublishedAt    Timestamp       `json:"publishedAt"`
	SellerID       int64           `json:"sellerId"`
	SellerNickname string          `json:"sellerNickname"`
	Sold           bool            `json:"sold"`
	Status         string          `json:"status"`
}

// IsApproved 是否审核通过
func (g Goods) IsApproved() bool {
	return g.Status == GoodsStatusApproved
}

// CoverOrFallback 返回封面图，没有封面时按分类返回占位图
func (g Goods) CoverOrFallback() string {
	if g.CoverImageURL != "" {
		return g.CoverImageURL
	}
	return FallbackCoverImage(g.Category)
}

// GoodsFilter 商品列表筛选条件
type GoodsFilter struct {
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Keyword  string
}

// GoodsCreateRequest 发布商品请求
type GoodsCreateRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity,omitempty"`
	CoverImageURL string          `json:"coverImageUrl,omitempty"`
}

// GoodsUpdateRequest 编辑商品请求
type GoodsUpdateRequest struct {
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	CoverImageURL string          `json:"coverImageUrl,omitempty"`
}

// GoodsReviewRequest 商品审核请求
type GoodsReviewRequest struct {
	Status string `json:"status"`
}

// HotGoodsItem 热门商品/排行榜条目
type HotGoodsItem struct {
	Goods Goods   `json:"goods"`
	Score float64 `json:"score"`
}

// CartItem 购物车条目，商品字段为冗余快照
type CartItem struct {
	ID                     int64            `json:"id"`
	GoodsID                int64            `json:"goodsId"`
	GoodsTitle             string           `json:"goodsTitle"`
	GoodsCoverImageURL     string           `json:"goodsCoverImageUrl,omitempty"`
	GoodsCategory          string           `json:"goodsCategory,omitempty"`
	GoodsPrice             *decimal.Decimal `json:"goodsPrice,omitempty"` // 可能缺失
	GoodsQuantityAvailable *int             `json:"goodsQuantityAvailable,omitempty"`
	GoodsSold              bool             `json:"goodsSold"`
	GoodsStatus            string           `json:"goodsStatus"`
	Quantity               int              `json:"quantity"`
}

// Purchasable 商品未售出且审核通过
func (c CartItem) Purchasable() bool {
	return !c.GoodsSold && c.GoodsStatus == GoodsStatusApproved
}

// CartItemRequest 加入购物车请求
type CartItemRequest struct {
	GoodsID  int64 `json:"goodsId"`
	Quantity int   `json:"quantity"`
}

// CartItemUpdateRequest 修改数量请求
type CartItemUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// PurgeResult 批量清理已售商品结果
type PurgeResult struct {
	Removed int `json:"removed"`
}

// Order 订单
type Order struct {
	ID                 int64     `json:"id"`
	GoodsID            int64     `json:"goodsId"`
	SellerID           int64     `json:"sellerId"`
	BuyerID            int64     `json:"buyerId"`
	Status             string    `json:"status"`
	CreatedAt          Timestamp `json:"createdAt"`
	UpdatedAt          Timestamp `json:"updatedAt"`
	GoodsTitle         string    `json:"goodsTitle"`
	GoodsCoverImageURL string    `json:"goodsCoverImageUrl,omitempty"`
	SellerNickname     string    `json:"sellerNickname"`
	BuyerNickname      string    `json:"buyerNickname"`
}

// OrderCreateRequest 下单请求
type OrderCreateRequest struct {
	GoodsID int64 `json:"goodsId"`
}

// OrderUpdateStatusRequest 修改订单状态请求
type OrderUpdateStatusRequest struct {
	Status string `json:"status"`
}

// ChatMessage 聊天消息
type ChatMessage struct {
	ID               int64      `json:"id"`
	SenderID         int64      `json:"senderId"`
	ReceiverID       int64      `json:"receiverId"`
	SenderNickname   string     `json:"senderNickname"`
	ReceiverNickname string     `json:"receiverNickname"`
	Content          string     `json:"content"`
	MessageType      string     `json:"messageType"`
	Timestamp        Timestamp  `json:"timestamp"`
	Read             bool       `json:"read"`
	ReadAt           *Timestamp `json:"readAt,omitempty"`
}

// Conversation 会话摘要，每个聊天对象一条
type Conversation struct {
	PartnerID          int64     `json:"partnerId"`
	PartnerNickname    string    `json:"partnerNickname"`
	LastMessageContent string    `json:"lastMessageContent"`
	MessageType        string    `json:"messageType,omitempty"`
	LastMessageAt      Timestamp `json:"lastMessageAt"`
	UnreadCount        int       `json:"unreadCount"`
}

// SendChatMessageRequest 发送消息请求
type SendChatMessageRequest struct {
	ReceiverID  int64  `json:"receiverId"`
	Content     string `json:"content"`
	MessageType string `json:"messageType"`
}

// UploadResult 文件上传结果
type UploadResult struct {
	URL string `json:"url"`
}

// FlashSaleItem 秒杀商品
type FlashSaleItem struct {
	ID             int64           `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	OriginalPrice  decimal.Decimal `json:"originalPrice"`
	FlashPrice     decimal.Decimal `json:"flashPrice"`
	TotalStock     int             `json:"totalStock"`
	RemainingStock int             `json:"remainingStock"`
	StartTime      Timestamp       `json:"startTime"`
	EndTime        Timestamp       `json:"endTime"`
	Status         string          `json:"status"`
}

// FlashSaleItemCreateRequest 创建秒杀商品请求
type FlashSaleItemCreateRequest struct {
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	FlashPrice    decimal.Decimal `json:"flashPrice"`
	TotalStock    int             `json:"totalStock"`
	StartTime     Timestamp       `json:"startTime"`
	EndTime       Timestamp       `json:"endTime"`
}

// FlashSalePurchaseRequest 抢购请求
type FlashSalePurchaseRequest struct {
	FlashSaleItemID int64 `json:"flashSaleItemId"`
}

// FlashSalePurchaseResult 抢购结果
type FlashSalePurchaseResult struct {
	OrderID int64  `json:"orderId"`
	Message string `json:"message"`
}

// KafkaDiagnosticsRequest Kafka诊断请求
type KafkaDiagnosticsRequest struct {
	Key            string `json:"key,omitempty"`
	OrderID        *int64 `json:"orderId,omitempty"`
	GoodsID        *int64 `json:"goodsId,omitempty"`
	BuyerID        *int64 `json:"buyerId,omitempty"`
	CurrentStatus  string `json:"currentStatus,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	Message        string `json:"message,omitempty"`
}

// KafkaDiagnosticsResponse Kafka诊断返回
type KafkaDiagnosticsResponse struct {
	Topic        string    `json:"topic"`
	Key          string    `json:"key"`
	DispatchedAt Timestamp `json:"dispatchedAt"`
	Message      string    `json:"message"`
}

// OrderEvent 订单事件（Kafka消息体）
type OrderEvent struct {
	EventType      string    `json:"eventType"`
	OrderID        *int64    `json:"orderId,omitempty"`
	GoodsID        *int64    `json:"goodsId,omitempty"`
	BuyerID        *int64    `json:"buyerId,omitempty"`
	CurrentStatus  string    `json:"currentStatus,omitempty"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	Note           string    `json:"note,omitempty"`
	EventTime      Timestamp `json:"eventTime"`
}

// FallbackCoverImage 按分类返回占位封面图
func FallbackCoverImage(category string) string {
	switch category {
	case "电子产品", "Electronics":
		return "https://dummyimage.com/600x360/1e90ff/ffffff.png&text=Electronics"
	case "书籍资料", "Books":
		return "https://dummyimage.com/600x360/34d399/ffffff.png&text=Books"
	default:
		return "https://dummyimage.com/600x360/f97316/ffffff.png&text=Daily"
	}
}
