package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 令牌持久化后端
const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
	TokenStoreEtcd  = "etcd"
)

// APIConfig 定义REST接口相关配置
type APIConfig struct {
	BaseURL string        `yaml:"base_url"` // 接口基础地址，例如 http://localhost:8080/api
	Timeout time.Duration `yaml:"timeout"`  // 单次请求超时时间
}

// RealtimeConfig 定义实时聊天通道配置
type RealtimeConfig struct {
	Endpoint       string        `yaml:"endpoint"`        // 显式指定的WebSocket地址，优先级最高
	PageOrigin     string        `yaml:"page_origin"`     // 页面来源地址，用于推导WebSocket地址
	Path           string        `yaml:"path"`            // WebSocket路径
	DevMode        bool          `yaml:"dev_mode"`        // 开发模式
	DevPortFrom    string        `yaml:"dev_port_from"`   // 开发模式下需要替换的端口
	DevPortTo      string        `yaml:"dev_port_to"`     // 开发模式下替换后的端口
	ReconnectDelay time.Duration `yaml:"reconnect_delay"` // 意外断开后的固定重连间隔
	Destination    string        `yaml:"destination"`     // 个人消息订阅地址
}

// SessionConfig 定义会话令牌持久化配置
type SessionConfig struct {
	Store    string `yaml:"store"`     // 持久化后端：file、redis、etcd
	TokenKey string `yaml:"token_key"` // 令牌存储键
	FilePath string `yaml:"file_path"` // file后端的文件路径
}

// RedisConfig 定义Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`     // Redis地址
	Password string `yaml:"password"` // Redis访问密码
	DB       int    `yaml:"db"`       // 数据库编号
}

// EtcdConfig 定义Etcd配置
type EtcdConfig struct {
	Host        string `yaml:"host"`         // Etcd服务地址，多个用逗号分隔
	DialTimeout int    `yaml:"dial_timeout"` // 连接超时时间（秒）
	Username    string `yaml:"username"`     // 认证用户名
	Password    string `yaml:"password"`     // 认证密码
}

// KafkaConfig 定义Kafka诊断配置
type KafkaConfig struct {
	Brokers    string `yaml:"brokers"`     // Kafka broker地址，多个用逗号分隔
	OrderTopic string `yaml:"order_topic"` // 订单事件主题
	GroupID    string `yaml:"group_id"`    // 消费者组ID
}

// FlashSaleConfig 定义秒杀抢购的客户端限流配置
type FlashSaleConfig struct {
	PurchaseRPS float64 `yaml:"purchase_rps"` // 每秒允许的抢购请求数
	Burst       int     `yaml:"burst"`        // 突发请求数
}

// ConsoleConfig 定义本地控制台服务配置
type ConsoleConfig struct {
	Port int `yaml:"port"` // 监听端口
}

// LogConfig 定义日志配置
type LogConfig struct {
	Level       string `yaml:"level"`       // 日志级别
	Development bool   `yaml:"development"` // 开发模式日志
}

// Config 聚合所有配置项
type Config struct {
	API       APIConfig       `yaml:"api"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Session   SessionConfig   `yaml:"session"`
	Redis     RedisConfig     `yaml:"redis"`
	Etcd      EtcdConfig      `yaml:"etcd"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	FlashSale FlashSaleConfig `yaml:"flash_sale"`
	Console   ConsoleConfig   `yaml:"console"`
	Log       LogConfig       `yaml:"log"`
}

// GetKafkaBrokers 将Kafka broker地址字符串转换为切片
func (kc *KafkaConfig) GetKafkaBrokers() []string {
	return splitList(kc.Brokers)
}

// GetEtcdEndpoints 获取Etcd服务端点
func (ec *EtcdConfig) GetEtcdEndpoints() []string {
	return splitList(ec.Host)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Default 返回带默认值的配置
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		Realtime: RealtimeConfig{
			PageOrigin:     "http://localhost:5173",
			Path:           "/ws",
			DevPortFrom:    "5173",
			DevPortTo:      "8080",
			ReconnectDelay: 5 * time.Second,
			Destination:    "/user/queue/messages",
		},
		Session: SessionConfig{
			Store:    TokenStoreFile,
			TokenKey: "campus-market-token",
			FilePath: ".campus-market/token",
		},
		Etcd:      EtcdConfig{DialTimeout: 5},
		Kafka:     KafkaConfig{OrderTopic: "order-events", GroupID: "campus-market-client"},
		FlashSale: FlashSaleConfig{PurchaseRPS: 2, Burst: 1},
		Console:   ConsoleConfig{Port: 9090},
		Log:       LogConfig{Level: "info"},
	}
}

// Validate 验证配置完整性
func (cfg *Config) Validate() error {
	if cfg.API.BaseURL == "" {
		return errors.New("api base url is required")
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return fmt.Errorf("api base url must be http(s), got %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout <= 0 {
		return errors.New("api timeout must be positive")
	}

	if cfg.Realtime.Endpoint == "" && cfg.Realtime.PageOrigin == "" {
		return errors.New("realtime endpoint or page origin is required")
	}
	if cfg.Realtime.ReconnectDelay <= 0 {
		return errors.New("realtime reconnect delay must be positive")
	}
	if cfg.Realtime.Destination == "" {
		return errors.New("realtime destination is required")
	}

	if cfg.Session.TokenKey == "" {
		return errors.New("session token key is required")
	}
	switch cfg.Session.Store {
	case TokenStoreFile:
		if cfg.Session.FilePath == "" {
			return errors.New("session file path is required for file store")
		}
	case TokenStoreRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("redis addr is required for redis token store")
		}
	case TokenStoreEtcd:
		if len(cfg.Etcd.GetEtcdEndpoints()) == 0 {
			return errors.New("etcd host is required for etcd token store")
		}
		if cfg.Etcd.DialTimeout <= 0 {
			return errors.New("etcd dial timeout must be positive")
		}
	default:
		return fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	if cfg.FlashSale.PurchaseRPS <= 0 || cfg.FlashSale.Burst <= 0 {
		return errors.New("flash sale purchase rps and burst must be positive")
	}
	if cfg.Console.Port <= 0 || cfg.Console.Port > 65535 {
		return fmt.Errorf("console port must be between 1 and 65535, got %d", cfg.Console.Port)
	}
	return nil
}

// Load 加载配置：先读取.env，再解析YAML文件，最后用环境变量覆盖
// path为空或文件不存在时使用默认值
func Load(path string) (*Config, error) {
	// .env不存在时忽略
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv 从环境变量覆盖配置
func applyEnv(cfg *Config) error {
	if v := os.Getenv("MARKET_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("MARKET_WS_ENDPOINT"); v != "" {
		cfg.Realtime.Endpoint = v
	}
	if v := os.Getenv("MARKET_PAGE_ORIGIN"); v != "" {
		cfg.Realtime.PageOrigin = v
	}
	if v := os.Getenv("MARKET_DEV_MODE"); v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MARKET_DEV_MODE: %w", err)
		}
		cfg.Realtime.DevMode = dev
		cfg.Log.Development = dev
	}
	if v := os.Getenv("MARKET_SESSION_STORE"); v != "" {
		cfg.Session.Store = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ETCD_HOST"); v != "" {
		cfg.Etcd.Host = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}
