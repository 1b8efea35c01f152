package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// State 连接状态
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MessageHandler 处理订阅收到的消息体
type MessageHandler func(body []byte)

// Options 实时通道参数
type Options struct {
	Endpoint       string        // 不含令牌的WebSocket地址
	Destination    string        // 订阅地址
	ReconnectDelay time.Duration // 意外断开后的固定重连间隔
	Dialer         *websocket.Dialer
}

// Client STOMP over WebSocket 客户端
// 连接在后台goroutine中维护，意外断开后按固定间隔重连，直到Disconnect
type Client struct {
	opts    Options
	handler MessageHandler
	logger  *zap.Logger

	state    atomic.Int32
	attempts atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient 创建客户端，Connect之前不会建立连接
func NewClient(opts Options, handler MessageHandler, logger *zap.Logger) *Client {
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	return &Client{opts: opts, handler: handler, logger: logger}
}

// State 当前状态
func (c *Client) State() State {
	return State(c.state.Load())
}

// Connected 是否已完成握手
func (c *Client) Connected() bool {
	return c.State() == Connected
}

// Connect 开始连接；已连接或正在连接时忽略，令牌为空时忽略
// 处于重连等待中时立即以新令牌重新连接
func (c *Client) Connect(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		if c.State() != Disconnected {
			return
		}
		c.stopLocked()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.state.Store(int32(Connecting))
	go c.run(ctx, token, done)
}

// Disconnect 主动断开并停止重连
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Close 等同于Disconnect
func (c *Client) Close() error {
	c.Disconnect()
	return nil
}

func (c *Client) stopLocked() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	c.cancel, c.done = nil, nil
	c.state.Store(int32(Disconnected))
}

func (c *Client) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)
	for {
		c.state.Store(int32(Connecting))
		err := c.session(ctx, token)
		c.state.Store(int32(Disconnected))
		if ctx.Err() != nil {
			return
		}
		c.logger.Debug("Realtime channel dropped, will reconnect",
			zap.Error(err),
			zap.Duration("delay", c.opts.ReconnectDelay),
		)

		timer := time.NewTimer(c.opts.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session 建立一次连接并阻塞读取，直到连接结束
func (c *Client) session(ctx context.Context, token string) error {
	conn, _, err := c.opts.Dialer.DialContext(ctx, WithToken(c.opts.Endpoint, token), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(f Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, f.Encode())
	}

	// 主动断开时发送DISCONNECT并关闭连接，让阻塞的读取返回
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = write(NewFrame(CmdDisconnect))
		conn.Close()
	})
	defer stop()

	if err := write(NewFrame(CmdConnect,
		"accept-version", "1.2",
		"host", hostOf(c.opts.Endpoint),
		"heart-beat", "0,0",
	)); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}

	frame, err := c.readFrame(conn)
	if err != nil {
		return fmt.Errorf("await connected: %w", err)
	}
	switch frame.Command {
	case CmdConnected:
	case CmdError:
		c.logger.Debug("Realtime broker rejected connect", zap.String("message", frame.Header("message")))
		return errors.New("broker error: " + frame.Header("message"))
	default:
		return fmt.Errorf("unexpected frame %s", frame.Command)
	}

	if err := write(NewFrame(CmdSubscribe,
		"id", "sub-"+uuid.NewString(),
		"destination", c.opts.Destination,
		"ack", "auto",
	)); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	c.state.Store(int32(Connected))

	c.logger.Info("Realtime channel connected",
		zap.String("destination", c.opts.Destination),
		zap.Int64("connections", c.attempts.Add(1)),
	)

	for {
		frame, err := c.readFrame(conn)
		if err != nil {
			return err
		}
		switch frame.Command {
		case CmdMessage:
			if c.handler != nil {
				c.handler(frame.Body)
			}
		case CmdError:
			c.logger.Debug("Realtime broker error", zap.String("message", frame.Header("message")))
			return errors.New("broker error: " + frame.Header("message"))
		}
	}
}

func (c *Client) readFrame(conn *websocket.Conn) (Frame, error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return Frame{}, err
		}
		frame, err := Decode(data)
		if errors.Is(err, ErrEmptyFrame) {
			continue
		}
		return frame, err
	}
}

func hostOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
