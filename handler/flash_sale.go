package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"campus_market/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	// ErrFlashSaleNotRunning 活动未开始、已结束或不在时间窗口内
	ErrFlashSaleNotRunning = errors.New("flash sale is not running")
	// ErrSoldOut 本地缓存显示库存为0
	ErrSoldOut = errors.New("flash sale item sold out")
	// ErrTooManyRequests 本地限流拒绝
	ErrTooManyRequests = errors.New("too many purchase requests")
)

// FlashSaleService 秒杀接口
type FlashSaleService interface {
	CreateItem(ctx context.Context, req model.FlashSaleItemCreateRequest) (model.FlashSaleItem, error)
	Items(ctx context.Context) ([]model.FlashSaleItem, error)
	Purchase(ctx context.Context, itemID int64) (model.FlashSalePurchaseResult, error)
}

// OrderLoader 抢购成功后刷新订单
type OrderLoader interface {
	LoadOrders(ctx context.Context) error
}

// FlashSaleHandler 秒杀业务处理器
// 在请求服务端之前先用本地缓存做一次状态与库存检查，并对抢购做令牌桶限流
type FlashSaleHandler struct {
	api     FlashSaleService
	orders  OrderLoader
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.RWMutex
	items []model.FlashSaleItem
}

// NewFlashSaleHandler 创建秒杀处理器实例
func NewFlashSaleHandler(api FlashSaleService, orders OrderLoader, rps float64, burst int, logger *zap.Logger) *FlashSaleHandler {
	return &FlashSaleHandler{
		api:     api,
		orders:  orders,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
		now:     time.Now,
	}
}

// LoadItems 加载秒杀商品
func (h *FlashSaleHandler) LoadItems(ctx context.Context) error {
	items, err := h.api.Items(ctx)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.items = items
	h.mu.Unlock()
	return nil
}

// CreateItem 创建秒杀商品（管理员）
func (h *FlashSaleHandler) CreateItem(ctx context.Context, req model.FlashSaleItemCreateRequest) (model.FlashSaleItem, error) {
	item, err := h.api.CreateItem(ctx, req)
	if err != nil {
		return model.FlashSaleItem{}, err
	}
	h.mu.Lock()
	h.items = append([]model.FlashSaleItem{item}, h.items...)
	h.mu.Unlock()
	return item, nil
}

// Purchase 抢购
func (h *FlashSaleHandler) Purchase(ctx context.Context, itemID int64) (model.FlashSalePurchaseResult, error) {
	if item, ok := h.Item(itemID); ok {
		if err := h.checkPurchasable(item); err != nil {
			return model.FlashSalePurchaseResult{}, err
		}
	}
	if !h.limiter.Allow() {
		return model.FlashSalePurchaseResult{}, ErrTooManyRequests
	}

	result, err := h.api.Purchase(ctx, itemID)
	if err != nil {
		return model.FlashSalePurchaseResult{}, err
	}

	// 先在本地扣减，随后的刷新以服务端为准
	h.mu.Lock()
	for i := range h.items {
		if h.items[i].ID == itemID && h.items[i].RemainingStock > 0 {
			h.items[i].RemainingStock--
		}
	}
	h.mu.Unlock()

	h.logger.Info("Flash sale purchase succeeded",
		zap.Int64("item_id", itemID),
		zap.Int64("order_id", result.OrderID),
	)
	h.reload(ctx)
	return result, nil
}

func (h *FlashSaleHandler) checkPurchasable(item model.FlashSaleItem) error {
	if item.Status != model.FlashSaleRunning {
		return ErrFlashSaleNotRunning
	}
	now := h.now()
	if !item.StartTime.IsZero() && now.Before(item.StartTime.Time) {
		return ErrFlashSaleNotRunning
	}
	if !item.EndTime.IsZero() && now.After(item.EndTime.Time) {
		return ErrFlashSaleNotRunning
	}
	if item.RemainingStock <= 0 {
		return ErrSoldOut
	}
	return nil
}

// reload 并发刷新秒杀列表与订单，失败只记日志
func (h *FlashSaleHandler) reload(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return h.LoadItems(ctx) })
	if h.orders != nil {
		g.Go(func() error { return h.orders.LoadOrders(ctx) })
	}
	if err := g.Wait(); err != nil {
		h.logger.Warn("Failed to reload after flash sale purchase", zap.Error(err))
	}
}

// Items 秒杀商品列表
func (h *FlashSaleHandler) Items() []model.FlashSaleItem {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]model.FlashSaleItem(nil), h.items...)
}

// Item 按ID查找缓存的秒杀商品
func (h *FlashSaleHandler) Item(id int64) (model.FlashSaleItem, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, it := range h.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.FlashSaleItem{}, false
}
