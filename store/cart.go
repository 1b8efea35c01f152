package store

import (
	"context"
	"sync"

	"campus_market/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService 购物车存储依赖的接口
type CartService interface {
	List(ctx context.Context) ([]model.CartItem, error)
	Add(ctx context.Context, req model.CartItemRequest) (model.CartItem, error)
	Update(ctx context.Context, cartItemID int64, req model.CartItemUpdateRequest) (model.CartItem, error)
	Remove(ctx context.Context, cartItemID int64) error
	PurgeSold(ctx context.Context) (model.PurgeResult, error)
}

// CartSummary 购物车汇总
type CartSummary struct {
	Items    int             `json:"items"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// CartStore 购物车本地缓存
type CartStore struct {
	api    CartService
	logger *zap.Logger

	mu      sync.RWMutex
	items   []model.CartItem
	loading int
}

// NewCartStore 创建购物车存储
func NewCartStore(api CartService, logger *zap.Logger) *CartStore {
	return &CartStore{api: api, logger: logger}
}

// LoadCart 加载购物车
func (s *CartStore) LoadCart(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}()

	items, err := s.api.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// AddToCart 加入购物车，同一商品服务端会合并为同一条目
func (s *CartStore) AddToCart(ctx context.Context, goodsID int64, quantity int) (model.CartItem, error) {
	if quantity <= 0 {
		quantity = 1
	}
	item, err := s.api.Add(ctx, model.CartItemRequest{GoodsID: goodsID, Quantity: quantity})
	if err != nil {
		return model.CartItem{}, err
	}
	s.mu.Lock()
	s.items = UpsertCartItem(s.items, item)
	s.mu.Unlock()
	return item, nil
}

// UpdateQuantity 修改数量
func (s *CartStore) UpdateQuantity(ctx context.Context, cartItemID int64, quantity int) (model.CartItem, error) {
	item, err := s.api.Update(ctx, cartItemID, model.CartItemUpdateRequest{Quantity: quantity})
	if err != nil {
		return model.CartItem{}, err
	}
	s.mu.Lock()
	s.items = ReplaceCartItem(s.items, cartItemID, item)
	s.mu.Unlock()
	return item, nil
}

// RemoveItem 移除条目
func (s *CartStore) RemoveItem(ctx context.Context, cartItemID int64) error {
	if err := s.api.Remove(ctx, cartItemID); err != nil {
		return err
	}
	s.mu.Lock()
	s.items = RemoveCartItem(s.items, cartItemID)
	s.mu.Unlock()
	return nil
}

// PurgeSoldItems 清理已售或下架的条目，服务端确有删除时本地才过滤
func (s *CartStore) PurgeSoldItems(ctx context.Context) (int, error) {
	result, err := s.api.PurgeSold(ctx)
	if err != nil {
		return 0, err
	}
	if result.Removed > 0 {
		s.mu.Lock()
		s.items = KeepPurchasable(s.items)
		s.mu.Unlock()
		s.logger.Info("Purged unavailable cart items", zap.Int("removed", result.Removed))
	}
	return result.Removed, nil
}

// Items 购物车条目
func (s *CartStore) Items() []model.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CartItem(nil), s.items...)
}

// Summary 汇总条目数、件数与金额
func (s *CartStore) Summary() CartSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, qty, amount := CartTotals(s.items)
	return CartSummary{Items: n, Quantity: qty, Amount: amount}
}

// Loading 是否在加载中
func (s *CartStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}
