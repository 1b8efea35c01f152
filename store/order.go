package store

import (
	"context"
	"sync"

	"campus_market/model"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OrderService 订单存储依赖的接口
type OrderService interface {
	Create(ctx context.Context, req model.OrderCreateRequest) (model.Order, error)
	List(ctx context.Context) ([]model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, req model.OrderUpdateStatusRequest) (model.Order, error)
}

// GoodsReloader 下单或取消后需要刷新的商品列表
type GoodsReloader interface {
	LoadGoods(ctx context.Context, filter *model.GoodsFilter) error
	LoadMyGoods(ctx context.Context) error
}

// OrderStore 订单本地缓存
type OrderStore struct {
	api    OrderService
	goods  GoodsReloader
	logger *zap.Logger

	mu      sync.RWMutex
	orders  []model.Order
	loading int
}

// NewOrderStore 创建订单存储，goods可为nil
func NewOrderStore(api OrderService, goods GoodsReloader, logger *zap.Logger) *OrderStore {
	return &OrderStore{api: api, goods: goods, logger: logger}
}

// LoadOrders 加载订单
func (s *OrderStore) LoadOrders(ctx context.Context) error {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}()

	orders, err := s.api.List(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.orders = orders
	s.mu.Unlock()
	return nil
}

// SubmitOrder 下单，成功后刷新商品列表
func (s *OrderStore) SubmitOrder(ctx context.Context, goodsID int64) (model.Order, error) {
	order, err := s.api.Create(ctx, model.OrderCreateRequest{GoodsID: goodsID})
	if err != nil {
		return model.Order{}, err
	}
	s.mu.Lock()
	s.orders = PrependOrder(s.orders, order)
	s.mu.Unlock()

	s.reloadGoods(ctx)
	return order, nil
}

// ChangeStatus 修改订单状态，取消时刷新商品列表
func (s *OrderStore) ChangeStatus(ctx context.Context, orderID int64, status string) (model.Order, error) {
	order, err := s.api.UpdateStatus(ctx, orderID, model.OrderUpdateStatusRequest{Status: status})
	if err != nil {
		return model.Order{}, err
	}
	s.mu.Lock()
	s.orders = ReplaceOrder(s.orders, orderID, order)
	s.mu.Unlock()

	if status == model.OrderStatusCanceled {
		s.reloadGoods(ctx)
	}
	return order, nil
}

// reloadGoods 并发刷新公开列表（不带筛选）与我的商品，失败只记日志
func (s *OrderStore) reloadGoods(ctx context.Context) {
	if s.goods == nil {
		return
	}
	var g errgroup.Group
	g.Go(func() error { return s.goods.LoadGoods(ctx, nil) })
	g.Go(func() error { return s.goods.LoadMyGoods(ctx) })
	if err := g.Wait(); err != nil {
		s.logger.Warn("Failed to reload goods after order change", zap.Error(err))
	}
}

// Orders 订单列表
func (s *OrderStore) Orders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Order(nil), s.orders...)
}

// Loading 是否在加载中
func (s *OrderStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}
