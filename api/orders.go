package api

import (
	"context"
	"fmt"

	"campus_market/model"
)

// OrderAPI 订单接口
type OrderAPI struct {
	client *Client
}

// NewOrderAPI 创建订单接口
func NewOrderAPI(client *Client) *OrderAPI {
	return &OrderAPI{client: client}
}

// Create POST /orders
func (o *OrderAPI) Create(ctx context.Context, req model.OrderCreateRequest) (model.Order, error) {
	var resp model.Order
	err := o.client.Post(ctx, "/orders", req, &resp)
	return resp, err
}

// List GET /orders
func (o *OrderAPI) List(ctx context.Context) ([]model.Order, error) {
	var resp []model.Order
	err := o.client.Get(ctx, "/orders", nil, &resp)
	return resp, err
}

// UpdateStatus PATCH /orders/{id}
func (o *OrderAPI) UpdateStatus(ctx context.Context, orderID int64, req model.OrderUpdateStatusRequest) (model.Order, error) {
	var resp model.Order
	err := o.client.Patch(ctx, fmt.Sprintf("/orders/%d", orderID), req, &resp)
	return resp, err
}
