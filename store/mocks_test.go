package store

import (
	"context"
	"io"
	"sync"

	"campus_market/model"

	"github.com/stretchr/testify/mock"
)

// MockAuthService 认证接口的模拟实现
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.AuthResponse), args.Error(1)
}

func (m *MockAuthService) Profile(ctx context.Context) (model.Profile, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.Profile), args.Error(1)
}

// memoryTokens 内存中的令牌持久化
type memoryTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (m *memoryTokens) Load(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryTokens) Save(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryTokens) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.cleared++
	return nil
}

// MockGoodsService 商品接口的模拟实现
type MockGoodsService struct {
	mock.Mock
}

func (m *MockGoodsService) List(ctx context.Context, filter *model.GoodsFilter) ([]model.Goods, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsService) Detail(ctx context.Context, id int64) (model.Goods, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Goods), args.Error(1)
}

func (m *MockGoodsService) Create(ctx context.Context, req model.GoodsCreateRequest) (model.Goods, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Goods), args.Error(1)
}

func (m *MockGoodsService) Mine(ctx context.Context) ([]model.Goods, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsService) Update(ctx context.Context, id int64, req model.GoodsUpdateRequest) (model.Goods, error) {
	args := m.Called(ctx, id, req)
	return args.Get(0).(model.Goods), args.Error(1)
}

func (m *MockGoodsService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockGoodsService) Pending(ctx context.Context) ([]model.Goods, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Goods), args.Error(1)
}

func (m *MockGoodsService) Review(ctx context.Context, id int64, status string) (model.Goods, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(model.Goods), args.Error(1)
}

func (m *MockGoodsService) Hot(ctx context.Context, limit int) ([]model.HotGoodsItem, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.HotGoodsItem), args.Error(1)
}

func (m *MockGoodsService) Ranking(ctx context.Context, metric string, limit int) ([]model.HotGoodsItem, error) {
	args := m.Called(ctx, metric, limit)
	return args.Get(0).([]model.HotGoodsItem), args.Error(1)
}

func (m *MockGoodsService) RecordView(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockCartService 购物车接口的模拟实现
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) List(ctx context.Context) ([]model.CartItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.CartItem), args.Error(1)
}

func (m *MockCartService) Add(ctx context.Context, req model.CartItemRequest) (model.CartItem, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.CartItem), args.Error(1)
}

func (m *MockCartService) Update(ctx context.Context, cartItemID int64, req model.CartItemUpdateRequest) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID, req)
	return args.Get(0).(model.CartItem), args.Error(1)
}

func (m *MockCartService) Remove(ctx context.Context, cartItemID int64) error {
	return m.Called(ctx, cartItemID).Error(0)
}

func (m *MockCartService) PurgeSold(ctx context.Context) (model.PurgeResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.PurgeResult), args.Error(1)
}

// MockOrderService 订单接口的模拟实现
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Create(ctx context.Context, req model.OrderCreateRequest) (model.Order, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Order), args.Error(1)
}

func (m *MockOrderService) List(ctx context.Context) ([]model.Order, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID int64, req model.OrderUpdateStatusRequest) (model.Order, error) {
	args := m.Called(ctx, orderID, req)
	return args.Get(0).(model.Order), args.Error(1)
}

// MockGoodsReloader 商品刷新的模拟实现
type MockGoodsReloader struct {
	mock.Mock
}

func (m *MockGoodsReloader) LoadGoods(ctx context.Context, filter *model.GoodsFilter) error {
	return m.Called(ctx, filter).Error(0)
}

func (m *MockGoodsReloader) LoadMyGoods(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockChatService 聊天接口的模拟实现
type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Conversations(ctx context.Context) ([]model.Conversation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Conversation), args.Error(1)
}

func (m *MockChatService) Messages(ctx context.Context, partnerID int64) ([]model.ChatMessage, error) {
	args := m.Called(ctx, partnerID)
	return args.Get(0).([]model.ChatMessage), args.Error(1)
}

func (m *MockChatService) MarkRead(ctx context.Context, partnerID int64) error {
	return m.Called(ctx, partnerID).Error(0)
}

func (m *MockChatService) Send(ctx context.Context, req model.SendChatMessageRequest) (model.ChatMessage, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.ChatMessage), args.Error(1)
}

// MockUploader 图片上传的模拟实现
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) ChatImage(ctx context.Context, filename string, file io.Reader) (model.UploadResult, error) {
	args := m.Called(ctx, filename, file)
	return args.Get(0).(model.UploadResult), args.Error(1)
}

// fakeIdentity 固定身份
type fakeIdentity struct {
	token  string
	userID int64
}

func (f *fakeIdentity) Token() string { return f.token }
func (f *fakeIdentity) UserID() int64 { return f.userID }

// fakeChannel 记录连接调用的推送通道
type fakeChannel struct {
	mu          sync.Mutex
	connected   bool
	connects    []string
	disconnects int
}

func (f *fakeChannel) Connect(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects = append(f.connects, token)
	f.connected = true
}

func (f *fakeChannel) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.connected = false
}

func (f *fakeChannel) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
