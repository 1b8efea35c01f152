package store

import (
	"context"
	"errors"
	"testing"

	"campus_market/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOrderStore_SubmitPrependsAndReloadsGoods(t *testing.T) {
	api := new(MockOrderService)
	reloader := new(MockGoodsReloader)
	s := NewOrderStore(api, reloader, zap.NewNop())
	ctx := context.Background()

	api.On("List", mock.Anything).Return([]model.Order{{ID: 1, GoodsID: 3}}, nil)
	api.On("Create", mock.Anything, model.OrderCreateRequest{GoodsID: 7}).
		Return(model.Order{ID: 2, GoodsID: 7, Status: model.OrderStatusPendingPayment}, nil)
	reloader.On("LoadGoods", mock.Anything, (*model.GoodsFilter)(nil)).Return(nil).Once()
	reloader.On("LoadMyGoods", mock.Anything).Return(nil).Once()

	require.NoError(t, s.LoadOrders(ctx))
	order, err := s.SubmitOrder(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), order.ID)

	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, int64(7), orders[0].GoodsID)
	reloader.AssertExpectations(t)
}

func TestOrderStore_ReloadFailureIsNotReturned(t *testing.T) {
	api := new(MockOrderService)
	reloader := new(MockGoodsReloader)
	s := NewOrderStore(api, reloader, zap.NewNop())

	api.On("Create", mock.Anything, mock.Anything).Return(model.Order{ID: 2}, nil)
	reloader.On("LoadGoods", mock.Anything, mock.Anything).Return(errors.New("offline"))
	reloader.On("LoadMyGoods", mock.Anything).Return(nil)

	_, err := s.SubmitOrder(context.Background(), 7)
	assert.NoError(t, err)
	reloader.AssertExpectations(t)
}

func TestOrderStore_ChangeStatus(t *testing.T) {
	api := new(MockOrderService)
	reloader := new(MockGoodsReloader)
	s := NewOrderStore(api, reloader, zap.NewNop())
	ctx := context.Background()

	api.On("List", mock.Anything).Return([]model.Order{{ID: 1, Status: model.OrderStatusPendingPayment}}, nil)
	api.On("UpdateStatus", mock.Anything, int64(1), model.OrderUpdateStatusRequest{Status: model.OrderStatusPendingShipment}).
		Return(model.Order{ID: 1, Status: model.OrderStatusPendingShipment}, nil)
	api.On("UpdateStatus", mock.Anything, int64(1), model.OrderUpdateStatusRequest{Status: model.OrderStatusCanceled}).
		Return(model.Order{ID: 1, Status: model.OrderStatusCanceled}, nil)

	require.NoError(t, s.LoadOrders(ctx))

	_, err := s.ChangeStatus(ctx, 1, model.OrderStatusPendingShipment)
	require.NoError(t, err)
	reloader.AssertNotCalled(t, "LoadGoods", mock.Anything, mock.Anything)
	assert.Equal(t, model.OrderStatusPendingShipment, s.Orders()[0].Status)

	reloader.On("LoadGoods", mock.Anything, (*model.GoodsFilter)(nil)).Return(nil).Once()
	reloader.On("LoadMyGoods", mock.Anything).Return(nil).Once()
	_, err = s.ChangeStatus(ctx, 1, model.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, s.Orders()[0].Status)
	reloader.AssertExpectations(t)
}

func TestOrderStore_CreateFailure(t *testing.T) {
	api := new(MockOrderService)
	reloader := new(MockGoodsReloader)
	s := NewOrderStore(api, reloader, zap.NewNop())
	boom := errors.New("sold")
	api.On("Create", mock.Anything, mock.Anything).Return(model.Order{}, boom)

	_, err := s.SubmitOrder(context.Background(), 7)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Orders())
	reloader.AssertNotCalled(t, "LoadMyGoods", mock.Anything)
}
