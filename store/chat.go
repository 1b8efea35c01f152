package store

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"campus_market/model"

	"go.uber.org/zap"
)

// ChatService 聊天存储依赖的接口
type ChatService interface {
	Conversations(ctx context.Context) ([]model.Conversation, error)
	Messages(ctx context.Context, partnerID int64) ([]model.ChatMessage, error)
	MarkRead(ctx context.Context, partnerID int64) error
	Send(ctx context.Context, req model.SendChatMessageRequest) (model.ChatMessage, error)
}

// ImageUploader 聊天图片上传
type ImageUploader interface {
	ChatImage(ctx context.Context, filename string, file io.Reader) (model.UploadResult, error)
}

// Identity 聊天需要的当前用户信息
type Identity interface {
	Token() string
	UserID() int64
}

// Channel 实时推送通道
type Channel interface {
	Connect(token string)
	Disconnect()
	Connected() bool
}

// ChatStore 会话与消息的本地缓存
// 同一条消息可能先后来自发送接口与推送通道，按消息ID去重
type ChatStore struct {
	api      ChatService
	uploader ImageUploader
	identity Identity
	channel  Channel
	logger   *zap.Logger
	now      func() time.Time

	mu                   sync.RWMutex
	messages             map[int64][]model.ChatMessage
	meta                 map[int64]model.Conversation
	loadingConversations int
	loadingMessages      int
	listeners            map[int]func(model.ChatMessage)
	nextListener         int
}

// NewChatStore 创建聊天存储
func NewChatStore(api ChatService, uploader ImageUploader, identity Identity, channel Channel, logger *zap.Logger) *ChatStore {
	return &ChatStore{
		api:      api,
		uploader: uploader,
		identity: identity,
		channel:  channel,
		logger:   logger,
		now:      time.Now,
		messages:  make(map[int64][]model.ChatMessage),
		meta:      make(map[int64]model.Conversation),
		listeners: make(map[int]func(model.ChatMessage)),
	}
}

// Subscribe 订阅写入本地的每条消息（发送结果与推送），返回取消订阅函数
func (s *ChatStore) Subscribe(fn func(model.ChatMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Connect 已登录时建立推送连接，重复调用由通道自身去重
func (s *ChatStore) Connect() {
	token := s.identity.Token()
	if token == "" {
		return
	}
	s.channel.Connect(token)
}

// Disconnect 断开推送，clearHistory为true时清空本地会话与消息
func (s *ChatStore) Disconnect(clearHistory bool) {
	s.channel.Disconnect()
	if !clearHistory {
		return
	}
	s.mu.Lock()
	s.messages = make(map[int64][]model.ChatMessage)
	s.meta = make(map[int64]model.Conversation)
	s.mu.Unlock()
}

// RefreshConversations 用服务端会话列表整体替换本地摘要
// 请求期间令牌发生变化时丢弃结果
func (s *ChatStore) RefreshConversations(ctx context.Context) error {
	token := s.identity.Token()
	if token == "" {
		return nil
	}
	s.adjust(&s.loadingConversations, 1)
	defer s.adjust(&s.loadingConversations, -1)

	list, err := s.api.Conversations(ctx)
	if err != nil {
		return err
	}
	meta := make(map[int64]model.Conversation, len(list))
	for _, c := range list {
		meta[c.PartnerID] = c
	}
	if s.identity.Token() != token {
		return nil
	}
	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
	return nil
}

// LoadConversationMessages 加载与某人的完整历史，没有摘要时根据历史生成
func (s *ChatStore) LoadConversationMessages(ctx context.Context, partnerID int64) error {
	token := s.identity.Token()
	if token == "" {
		return nil
	}
	s.adjust(&s.loadingMessages, 1)
	defer s.adjust(&s.loadingMessages, -1)

	history, err := s.api.Messages(ctx, partnerID)
	if err != nil {
		return err
	}
	if s.identity.Token() != token {
		return nil
	}
	history = SortMessages(history)
	selfID := s.identity.UserID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[partnerID] = history
	if _, ok := s.meta[partnerID]; !ok {
		s.meta[partnerID] = SummarizeHistory(partnerID, history, selfID, s.now())
	}
	return nil
}

// EnsureConversation 打开与某人的会话时调用，已存在时只补全昵称
func (s *ChatStore) EnsureConversation(partnerID int64, nickname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.meta[partnerID]
	if !ok {
		s.meta[partnerID] = model.Conversation{
			PartnerID:       partnerID,
			PartnerNickname: nickname,
			LastMessageAt:   model.NewTimestamp(s.now()),
		}
		return
	}
	if nickname != "" {
		meta.PartnerNickname = nickname
		s.meta[partnerID] = meta
	}
}

// SendMessage 发送消息，空白内容直接忽略并返回nil
func (s *ChatStore) SendMessage(ctx context.Context, partnerID int64, content, messageType string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	if s.identity.Token() == "" {
		return nil, ErrNotAuthenticated
	}
	if messageType == "" {
		messageType = model.MessageTypeText
	}
	if !s.channel.Connected() {
		s.Connect()
	}

	msg, err := s.api.Send(ctx, model.SendChatMessageRequest{
		ReceiverID:  partnerID,
		Content:     content,
		MessageType: messageType,
	})
	if err != nil {
		return nil, err
	}
	s.insertMessage(msg)
	return &msg, nil
}

// SendImageMessage 上传图片后以图片消息发送
func (s *ChatStore) SendImageMessage(ctx context.Context, partnerID int64, filename string, file io.Reader) (*model.ChatMessage, error) {
	if s.identity.Token() == "" {
		return nil, ErrNotAuthenticated
	}
	uploaded, err := s.uploader.ChatImage(ctx, filename, file)
	if err != nil {
		return nil, err
	}
	return s.SendMessage(ctx, partnerID, uploaded.URL, model.MessageTypeImage)
}

// MarkPartnerMessagesRead 未读数为0时不请求；服务端标记成功后，本地将对方消息置为已读并清零未读数
func (s *ChatStore) MarkPartnerMessagesRead(ctx context.Context, partnerID int64) error {
	if s.identity.Token() == "" {
		return nil
	}
	if meta, ok := s.Conversation(partnerID); !ok || meta.UnreadCount == 0 {
		return nil
	}
	if err := s.api.MarkRead(ctx, partnerID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if list, ok := s.messages[partnerID]; ok {
		s.messages[partnerID], _ = MarkPartnerRead(list, partnerID, s.now())
	}
	if meta, ok := s.meta[partnerID]; ok {
		meta.UnreadCount = 0
		s.meta[partnerID] = meta
	}
	return nil
}

// HandlePayload 处理推送通道的消息体，无法解析的丢弃
func (s *ChatStore) HandlePayload(body []byte) {
	var msg model.ChatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.logger.Debug("Dropping malformed chat payload", zap.Error(err))
		return
	}
	s.HandleIncoming(msg)
}

// HandleIncoming 推送来的消息
func (s *ChatStore) HandleIncoming(msg model.ChatMessage) {
	s.insertMessage(msg)
}

func (s *ChatStore) insertMessage(msg model.ChatMessage) {
	selfID := s.identity.UserID()
	partnerID := PartnerOf(msg, selfID)

	s.mu.Lock()
	list, previous := UpsertMessage(s.messages[partnerID], msg)
	s.messages[partnerID] = list
	meta, ok := s.meta[partnerID]
	s.meta[partnerID] = ApplyMessage(meta, ok, msg, selfID, previous)
	listeners := make([]func(model.ChatMessage), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(msg)
	}
}

func (s *ChatStore) adjust(counter *int, delta int) {
	s.mu.Lock()
	*counter += delta
	s.mu.Unlock()
}

// Conversations 按最后消息时间倒序的会话列表
func (s *ChatStore) Conversations() []model.Conversation {
	s.mu.RLock()
	list := make([]model.Conversation, 0, len(s.meta))
	for _, c := range s.meta {
		list = append(list, c)
	}
	s.mu.RUnlock()
	return SortConversations(list)
}

// Conversation 单个会话摘要
func (s *ChatStore) Conversation(partnerID int64) (model.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.meta[partnerID]
	return c, ok
}

// Messages 与某人的消息，按时间升序
func (s *ChatStore) Messages(partnerID int64) []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.ChatMessage(nil), s.messages[partnerID]...)
}

// TotalUnread 所有会话未读数之和
func (s *ChatStore) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, c := range s.meta {
		total += c.UnreadCount
	}
	return total
}

// Connected 推送通道是否已连接
func (s *ChatStore) Connected() bool {
	return s.channel.Connected()
}

// Loading 会话或消息是否在加载中
func (s *ChatStore) Loading() (conversations, messages bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadingConversations > 0, s.loadingMessages > 0
}
