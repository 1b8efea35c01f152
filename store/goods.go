package store

import (
	"context"
	"sync"

	"campus_market/model"

	"go.uber.org/zap"
)

// 热门与排行默认参数
const (
	DefaultHotLimit      = 6
	DefaultRankingMetric = "orders"
	DefaultRankingLimit  = 10
)

// GoodsService 商品存储依赖的接口
type GoodsService interface {
	List(ctx context.Context, filter *model.GoodsFilter) ([]model.Goods, error)
	Detail(ctx context.Context, id int64) (model.Goods, error)
	Create(ctx context.Context, req model.GoodsCreateRequest) (model.Goods, error)
	Mine(ctx context.Context) ([]model.Goods, error)
	Update(ctx context.Context, id int64, req model.GoodsUpdateRequest) (model.Goods, error)
	Delete(ctx context.Context, id int64) error
	Pending(ctx context.Context) ([]model.Goods, error)
	Review(ctx context.Context, id int64, status string) (model.Goods, error)
	Hot(ctx context.Context, limit int) ([]model.HotGoodsItem, error)
	Ranking(ctx context.Context, metric string, limit int) ([]model.HotGoodsItem, error)
	RecordView(ctx context.Context, id int64) error
}

// GoodsStore 商品本地缓存
// 接口调用在锁外进行，返回后一次性写入；并发的列表加载以最后返回的为准
type GoodsStore struct {
	api    GoodsService
	logger *zap.Logger

	mu             sync.RWMutex
	lists          GoodsLists
	hot            []model.HotGoodsItem
	ranking        []model.HotGoodsItem
	loading        int
	pendingLoading int
}

// NewGoodsStore 创建商品存储
func NewGoodsStore(api GoodsService, logger *zap.Logger) *GoodsStore {
	return &GoodsStore{api: api, logger: logger}
}

// LoadGoods 按条件加载公开商品列表，filter为nil表示不筛选
func (s *GoodsStore) LoadGoods(ctx context.Context, filter *model.GoodsFilter) error {
	s.setLoading(&s.loading, 1)
	defer s.setLoading(&s.loading, -1)

	items, err := s.api.List(ctx, filter)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lists.Catalog = items
	s.mu.Unlock()
	return nil
}

// LoadGoodsByID 加载详情，请求期间详情为空
func (s *GoodsStore) LoadGoodsByID(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.lists.Selected = nil
	s.mu.Unlock()

	item, err := s.api.Detail(ctx, id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lists.Selected = &item
	s.mu.Unlock()
	return nil
}

// LoadMyGoods 加载我发布的商品
func (s *GoodsStore) LoadMyGoods(ctx context.Context) error {
	items, err := s.api.Mine(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lists.Mine = items
	s.mu.Unlock()
	return nil
}

// CreateGoods 发布商品
func (s *GoodsStore) CreateGoods(ctx context.Context, req model.GoodsCreateRequest) (model.Goods, error) {
	item, err := s.api.Create(ctx, req)
	if err != nil {
		return model.Goods{}, err
	}
	s.mu.Lock()
	s.lists = s.lists.Created(item)
	s.mu.Unlock()
	return item, nil
}

// UpdateGoods 编辑商品
func (s *GoodsStore) UpdateGoods(ctx context.Context, id int64, req model.GoodsUpdateRequest) (model.Goods, error) {
	item, err := s.api.Update(ctx, id, req)
	if err != nil {
		return model.Goods{}, err
	}
	item.ID = id
	s.mu.Lock()
	s.lists = s.lists.Updated(item)
	s.mu.Unlock()
	return item, nil
}

// DeleteGoods 删除商品
func (s *GoodsStore) DeleteGoods(ctx context.Context, id int64) error {
	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	s.lists = s.lists.Deleted(id)
	s.mu.Unlock()
	return nil
}

// LoadPendingGoods 加载待审核商品
func (s *GoodsStore) LoadPendingGoods(ctx context.Context) error {
	s.setLoading(&s.pendingLoading, 1)
	defer s.setLoading(&s.pendingLoading, -1)

	items, err := s.api.Pending(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.lists.Pending = items
	s.mu.Unlock()
	return nil
}

// ReviewGoods 审核商品并同步各列表
func (s *GoodsStore) ReviewGoods(ctx context.Context, id int64, status string) (model.Goods, error) {
	item, err := s.api.Review(ctx, id, status)
	if err != nil {
		return model.Goods{}, err
	}
	s.mu.Lock()
	s.lists = s.lists.Reviewed(item)
	s.mu.Unlock()
	return item, nil
}

// SyncGoods 外部得知某商品状态变化时调用
func (s *GoodsStore) SyncGoods(item model.Goods) {
	s.mu.Lock()
	s.lists = s.lists.Synced(item)
	s.mu.Unlock()
}

// LoadHotGoods 加载热门商品，limit<=0时取默认值
func (s *GoodsStore) LoadHotGoods(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = DefaultHotLimit
	}
	items, err := s.api.Hot(ctx, limit)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.hot = items
	s.mu.Unlock()
	return nil
}

// LoadRanking 加载排行榜
func (s *GoodsStore) LoadRanking(ctx context.Context, metric string, limit int) error {
	if metric == "" {
		metric = DefaultRankingMetric
	}
	if limit <= 0 {
		limit = DefaultRankingLimit
	}
	items, err := s.api.Ranking(ctx, metric, limit)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ranking = items
	s.mu.Unlock()
	return nil
}

// RecordView 上报浏览，失败只记日志
func (s *GoodsStore) RecordView(ctx context.Context, id int64) {
	if err := s.api.RecordView(ctx, id); err != nil {
		s.logger.Debug("Failed to record goods view", zap.Int64("goods_id", id), zap.Error(err))
	}
}

func (s *GoodsStore) setLoading(counter *int, delta int) {
	s.mu.Lock()
	*counter += delta
	s.mu.Unlock()
}

// Items 公开商品列表
func (s *GoodsStore) Items() []model.Goods {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGoods(s.lists.Catalog)
}

// MyItems 我发布的商品
func (s *GoodsStore) MyItems() []model.Goods {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGoods(s.lists.Mine)
}

// PendingItems 待审核商品
func (s *GoodsStore) PendingItems() []model.Goods {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGoods(s.lists.Pending)
}

// Selected 当前详情，没有时返回false
func (s *GoodsStore) Selected() (model.Goods, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lists.Selected == nil {
		return model.Goods{}, false
	}
	return *s.lists.Selected, true
}

// HotItems 热门商品
func (s *GoodsStore) HotItems() []model.HotGoodsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.HotGoodsItem(nil), s.hot...)
}

// RankingItems 排行榜
func (s *GoodsStore) RankingItems() []model.HotGoodsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.HotGoodsItem(nil), s.ranking...)
}

// Loading 公开列表是否在加载中
func (s *GoodsStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// PendingLoading 待审核列表是否在加载中
func (s *GoodsStore) PendingLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pendingLoading > 0
}

func cloneGoods(list []model.Goods) []model.Goods {
	return append([]model.Goods(nil), list...)
}
