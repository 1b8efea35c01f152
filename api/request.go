package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultErrorMessage 服务端没有返回message时的提示
const DefaultErrorMessage = "网络异常，请稍后重试"

// ErrNetwork 请求未得到HTTP响应（连接失败、超时等）
var ErrNetwork = errors.New("network error")

// HTTPError 非2xx响应
type HTTPError struct {
	StatusCode int
	Message    string // 服务端返回的message字段
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// IsUnauthorized 判断是否为401
func IsUnauthorized(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusUnauthorized
}

// StatusCode 返回错误对应的HTTP状态码，非HTTPError返回0
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// Session 传输层需要的会话能力：读取令牌、强制登出
type Session interface {
	Token() string
	Logout()
}

// Notifier 面向用户的错误提示
type Notifier interface {
	Error(message string)
}

// LogNotifier 用日志输出提示，并保留最近的若干条供控制台展示
type LogNotifier struct {
	logger *zap.Logger
	limit  int

	mu     sync.Mutex
	recent []Notification
}

// Notification 一条用户提示
type Notification struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NewLogNotifier 创建LogNotifier，limit为保留条数
func NewLogNotifier(logger *zap.Logger, limit int) *LogNotifier {
	if limit <= 0 {
		limit = 50
	}
	return &LogNotifier{logger: logger, limit: limit}
}

// Error 实现Notifier
func (n *LogNotifier) Error(message string) {
	n.logger.Warn("notify", zap.String("message", message))

	n.mu.Lock()
	defer n.mu.Unlock()
	n.recent = append(n.recent, Notification{Message: message, At: time.Now()})
	if len(n.recent) > n.limit {
		n.recent = n.recent[len(n.recent)-n.limit:]
	}
}

// Recent 返回最近的提示，按时间先后
func (n *LogNotifier) Recent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.recent))
	copy(out, n.recent)
	return out
}

// Client 统一的HTTP传输层
// 自动携带Bearer令牌；401时强制登出；任何错误都会提示用户并原样返回给调用方
type Client struct {
	baseURL  string
	http     *http.Client
	notifier Notifier
	logger   *zap.Logger

	mu      sync.RWMutex
	session Session
}

// Option 客户端可选项
type Option func(*Client)

// WithHTTPClient 替换底层http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithNotifier 设置用户提示实现
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient 创建传输层，baseURL形如 http://host:8080/api
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = NewLogNotifier(c.logger, 0)
	}
	return c
}

// AttachSession 绑定会话，会话存储构造时依赖本客户端，因此延后绑定
func (c *Client) AttachSession(s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) currentSession() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Get 发送GET请求
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post 发送POST请求
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put 发送PUT请求
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Patch 发送PATCH请求
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Delete 发送DELETE请求
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do 发送JSON请求，body为nil时不带请求体，out为nil时忽略响应体
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body failed: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, query, reader, contentType, out)
}

// PostMultipart 以multipart/form-data上传单个文件
func (c *Client) PostMultipart(ctx context.Context, path, field, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file failed: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy upload content failed: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer failed: %w", err)
	}
	return c.send(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType(), out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request failed: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	// 令牌只在本次请求内读取一次
	session := c.currentSession()
	if session != nil {
		if token := session.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		c.notifier.Error(DefaultErrorMessage)
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.notifier.Error(DefaultErrorMessage)
		return fmt.Errorf("%w: read response of %s %s: %v", ErrNetwork, method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data),
			Body:       data,
		}
		c.logger.Debug("request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", httpErr.Message),
		)
		if resp.StatusCode == http.StatusUnauthorized && session != nil {
			session.Logout()
		}
		msg := httpErr.Message
		if msg == "" {
			msg = DefaultErrorMessage
		}
		c.notifier.Error(msg)
		return httpErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response of %s %s failed: %w", method, path, err)
	}
	return nil
}

// errorMessage 从错误响应体中提取message字段
func errorMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Message
}
