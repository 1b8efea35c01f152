package api

import (
	"context"

	"campus_market/model"
)

// FlashSaleAPI 秒杀接口
type FlashSaleAPI struct {
	client *Client
}

// NewFlashSaleAPI 创建秒杀接口
func NewFlashSaleAPI(client *Client) *FlashSaleAPI {
	return &FlashSaleAPI{client: client}
}

// CreateItem POST /flash-sale/items
func (f *FlashSaleAPI) CreateItem(ctx context.Context, req model.FlashSaleItemCreateRequest) (model.FlashSaleItem, error) {
	var resp model.FlashSaleItem
	err := f.client.Post(ctx, "/flash-sale/items", req, &resp)
	return resp, err
}

// Items GET /flash-sale/items
func (f *FlashSaleAPI) Items(ctx context.Context) ([]model.FlashSaleItem, error) {
	var resp []model.FlashSaleItem
	err := f.client.Get(ctx, "/flash-sale/items", nil, &resp)
	return resp, err
}

// Purchase POST /flash-sale/purchase
func (f *FlashSaleAPI) Purchase(ctx context.Context, itemID int64) (model.FlashSalePurchaseResult, error) {
	var resp model.FlashSalePurchaseResult
	err := f.client.Post(ctx, "/flash-sale/purchase", model.FlashSalePurchaseRequest{FlashSaleItemID: itemID}, &resp)
	return resp, err
}
