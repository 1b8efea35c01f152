package api

import (
	"context"
	"fmt"

	"campus_market/model"
)

// CartAPI 购物车接口
type CartAPI struct {
	client *Client
}

// NewCartAPI 创建购物车接口
func NewCartAPI(client *Client) *CartAPI {
	return &CartAPI{client: client}
}

// List GET /cart
func (c *CartAPI) List(ctx context.Context) ([]model.CartItem, error) {
	var resp []model.CartItem
	err := c.client.Get(ctx, "/cart", nil, &resp)
	return resp, err
}

// Add POST /cart，同一商品重复加入时服务端返回同一条目
func (c *CartAPI) Add(ctx context.Context, req model.CartItemRequest) (model.CartItem, error) {
	var resp model.CartItem
	err := c.client.Post(ctx, "/cart", req, &resp)
	return resp, err
}

// Update PUT /cart/{id}
func (c *CartAPI) Update(ctx context.Context, cartItemID int64, req model.CartItemUpdateRequest) (model.CartItem, error) {
	var resp model.CartItem
	err := c.client.Put(ctx, fmt.Sprintf("/cart/%d", cartItemID), req, &resp)
	return resp, err
}

// Remove DELETE /cart/{id}
func (c *CartAPI) Remove(ctx context.Context, cartItemID int64) error {
	return c.client.Delete(ctx, fmt.Sprintf("/cart/%d", cartItemID), nil)
}

// PurgeSold DELETE /cart/sold
func (c *CartAPI) PurgeSold(ctx context.Context) (model.PurgeResult, error) {
	var resp model.PurgeResult
	err := c.client.Delete(ctx, "/cart/sold", &resp)
	return resp, err
}
