package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campus_market/api"
	"campus_market/config"
	"campus_market/global"
	"campus_market/handler"
	"campus_market/realtime"
	"campus_market/repository"
	"campus_market/store"

	"github.com/go-redis/redis/v8"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// App 客户端的组装根，持有所有存储与基础设施
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Notifier *api.LogNotifier

	Client  *api.Client
	Uploads *api.UploadAPI

	Session     *store.SessionStore
	Goods       *store.GoodsStore
	Cart        *store.CartStore
	Orders      *store.OrderStore
	Chat        *store.ChatStore
	FlashSale   *handler.FlashSaleHandler
	Diagnostics *DiagnosticsService
	Realtime    *realtime.Client

	tokens    repository.TokenRepository
	etcdRepo  *repository.EtcdTokenRepository
	redis     *redis.Client
	etcd      *clientv3.Client
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	unlink    func()
	lastToken string
	linkMu    sync.Mutex
	closeOnce sync.Once
}

// NewApp 按配置组装客户端，令牌后端为redis或etcd时会先建立连接
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Notifier: api.NewLogNotifier(logger, 50),
	}
	app.ctx, app.cancel = context.WithCancel(context.Background())

	if err := app.initTokenRepository(ctx); err != nil {
		app.cancel()
		return nil, err
	}

	app.Client = api.NewClient(cfg.API.BaseURL, cfg.API.Timeout,
		api.WithNotifier(app.Notifier),
		api.WithLogger(logger.Named("api")),
	)
	app.Uploads = api.NewUploadAPI(app.Client)

	app.Session = store.NewSessionStore(api.NewAuthAPI(app.Client), app.tokens, logger.Named("session"))
	app.Client.AttachSession(app.Session)

	app.Goods = store.NewGoodsStore(api.NewGoodsAPI(app.Client), logger.Named("goods"))
	app.Cart = store.NewCartStore(api.NewCartAPI(app.Client), logger.Named("cart"))
	app.Orders = store.NewOrderStore(api.NewOrderAPI(app.Client), app.Goods, logger.Named("orders"))

	endpoint, err := realtime.ResolveEndpoint(cfg.Realtime)
	if err != nil {
		app.closeInfra()
		return nil, err
	}
	// 推送通道与聊天存储互相引用，先声明变量再在回调中使用
	var chat *store.ChatStore
	app.Realtime = realtime.NewClient(realtime.Options{
		Endpoint:       endpoint,
		Destination:    cfg.Realtime.Destination,
		ReconnectDelay: cfg.Realtime.ReconnectDelay,
	}, func(body []byte) {
		chat.HandlePayload(body)
	}, logger.Named("realtime"))
	chat = store.NewChatStore(api.NewChatAPI(app.Client), app.Uploads, app.Session, app.Realtime, logger.Named("chat"))
	app.Chat = chat

	app.FlashSale = handler.NewFlashSaleHandler(api.NewFlashSaleAPI(app.Client), app.Orders,
		cfg.FlashSale.PurchaseRPS, cfg.FlashSale.Burst, logger.Named("flash_sale"))
	app.Diagnostics = NewDiagnosticsService(api.NewDiagnosticsAPI(app.Client), KafkaEvents(cfg.Kafka, logger), logger.Named("diagnostics"))

	app.unlink = app.Session.Subscribe(app.onTokenChange)
	return app, nil
}

func (a *App) initTokenRepository(ctx context.Context) error {
	cfg := a.Config
	switch cfg.Session.Store {
	case config.TokenStoreRedis:
		client, err := global.NewRedisClient(ctx, cfg.Redis, a.Logger)
		if err != nil {
			return err
		}
		a.redis = client
		a.tokens = repository.NewRedisTokenRepository(client, cfg.Session.TokenKey)
	case config.TokenStoreEtcd:
		client, err := global.NewEtcdClient(ctx, cfg.Etcd, a.Logger)
		if err != nil {
			return err
		}
		a.etcd = client
		a.etcdRepo = repository.NewEtcdTokenRepository(client, cfg.Session.TokenKey, a.Logger.Named("etcd_token"))
		a.tokens = a.etcdRepo
	case config.TokenStoreFile:
		a.tokens = repository.NewFileTokenRepository(cfg.Session.FilePath)
	default:
		return fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
	return nil
}

// Start 恢复会话；令牌保存在Etcd时同时监听其他进程的登出
func (a *App) Start(ctx context.Context) error {
	if err := a.Session.Init(ctx); err != nil {
		return fmt.Errorf("restore session failed: %w", err)
	}
	if a.etcdRepo != nil {
		a.etcdRepo.Watch(a.ctx, func(change repository.TokenChange) {
			if change.Removed && a.Session.IsAuthenticated() {
				a.Logger.Info("Token removed by another client, logging out")
				a.Session.Logout()
			}
		})
	}
	return nil
}

// onTokenChange 登录后连接推送并刷新会话列表，登出后断开并清空聊天记录
// 令牌直接切换为另一个用户时先按登出处理
func (a *App) onTokenChange(token string) {
	a.linkMu.Lock()
	previous := a.lastToken
	a.lastToken = token
	a.linkMu.Unlock()

	if token == "" || previous != "" {
		a.Chat.Disconnect(true)
	}
	if token == "" {
		return
	}
	a.Chat.Connect()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(a.ctx, a.Config.API.Timeout)
		defer cancel()
		if err := a.Chat.RefreshConversations(ctx); err != nil {
			a.Logger.Warn("Failed to refresh conversations", zap.Error(err))
		}
	}()
}

// Close 断开推送并释放基础设施连接，可重复调用
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.unlink != nil {
			a.unlink()
		}
		a.cancel()
		if a.Realtime != nil {
			_ = a.Realtime.Close()
		}
		a.wg.Wait()
		a.closeInfra()
	})
	return nil
}

func (a *App) closeInfra() {
	a.cancel()
	global.CloseRedis(a.redis, a.Logger)
	global.CloseEtcd(a.etcd, a.Logger)
	a.redis, a.etcd = nil, nil
}

// shutdownTimeout 命令行退出时等待收尾的上限
const shutdownTimeout = 5 * time.Second

// Shutdown 在限定时间内关闭，超时返回ctx错误
func (a *App) Shutdown() error {
	done := make(chan struct{})
	go func() {
		_ = a.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(shutdownTimeout):
		return context.DeadlineExceeded
	}
}
