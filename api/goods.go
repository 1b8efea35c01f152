package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"campus_market/model"
)

// GoodsAPI 商品接口
type GoodsAPI struct {
	client *Client
}

// NewGoodsAPI 创建商品接口
func NewGoodsAPI(client *Client) *GoodsAPI {
	return &GoodsAPI{client: client}
}

// filterQuery 将筛选条件转换为查询参数，空字段不传
func filterQuery(filter *model.GoodsFilter) url.Values {
	if filter == nil {
		return nil
	}
	q := url.Values{}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	if filter.MinPrice != nil {
		q.Set("minPrice", filter.MinPrice.String())
	}
	if filter.MaxPrice != nil {
		q.Set("maxPrice", filter.MaxPrice.String())
	}
	if filter.Keyword != "" {
		q.Set("keyword", filter.Keyword)
	}
	return q
}

// List GET /goods
func (g *GoodsAPI) List(ctx context.Context, filter *model.GoodsFilter) ([]model.Goods, error) {
	var resp []model.Goods
	err := g.client.Get(ctx, "/goods", filterQuery(filter), &resp)
	return resp, err
}

// Detail GET /goods/{id}
func (g *GoodsAPI) Detail(ctx context.Context, id int64) (model.Goods, error) {
	var resp model.Goods
	err := g.client.Get(ctx, fmt.Sprintf("/goods/%d", id), nil, &resp)
	return resp, err
}

// Create POST /goods
func (g *GoodsAPI) Create(ctx context.Context, req model.GoodsCreateRequest) (model.Goods, error) {
	var resp model.Goods
	err := g.client.Post(ctx, "/goods", req, &resp)
	return resp, err
}

// Mine GET /goods/mine
func (g *GoodsAPI) Mine(ctx context.Context) ([]model.Goods, error) {
	var resp []model.Goods
	err := g.client.Get(ctx, "/goods/mine", nil, &resp)
	return resp, err
}

// Update PUT /goods/{id}
func (g *GoodsAPI) Update(ctx context.Context, id int64, req model.GoodsUpdateRequest) (model.Goods, error) {
	var resp model.Goods
	err := g.client.Put(ctx, fmt.Sprintf("/goods/%d", id), req, &resp)
	return resp, err
}

// Delete DELETE /goods/{id}
func (g *GoodsAPI) Delete(ctx context.Context, id int64) error {
	return g.client.Delete(ctx, fmt.Sprintf("/goods/%d", id), nil)
}

// Pending GET /goods/pending
func (g *GoodsAPI) Pending(ctx context.Context) ([]model.Goods, error) {
	var resp []model.Goods
	err := g.client.Get(ctx, "/goods/pending", nil, &resp)
	return resp, err
}

// Review PUT /goods/{id}/review
func (g *GoodsAPI) Review(ctx context.Context, id int64, status string) (model.Goods, error) {
	var resp model.Goods
	err := g.client.Put(ctx, fmt.Sprintf("/goods/%d/review", id), model.GoodsReviewRequest{Status: status}, &resp)
	return resp, err
}

// Hot GET /goods/hot，limit<=0时使用服务端默认值
func (g *GoodsAPI) Hot(ctx context.Context, limit int) ([]model.HotGoodsItem, error) {
	var q url.Values
	if limit > 0 {
		q = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var resp []model.HotGoodsItem
	err := g.client.Get(ctx, "/goods/hot", q, &resp)
	return resp, err
}

// Ranking GET /goods/ranking
func (g *GoodsAPI) Ranking(ctx context.Context, metric string, limit int) ([]model.HotGoodsItem, error) {
	q := url.Values{}
	if metric != "" {
		q.Set("metric", metric)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp []model.HotGoodsItem
	err := g.client.Get(ctx, "/goods/ranking", q, &resp)
	return resp, err
}

// RecordView POST /goods/{id}/view
func (g *GoodsAPI) RecordView(ctx context.Context, id int64) error {
	return g.client.Post(ctx, fmt.Sprintf("/goods/%d/view", id), nil, nil)
}
