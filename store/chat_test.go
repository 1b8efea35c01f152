package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"campus_market/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const selfID = int64(1)

func newChatStore(token string) (*ChatStore, *MockChatService, *MockUploader, *fakeChannel) {
	api := new(MockChatService)
	uploader := new(MockUploader)
	channel := &fakeChannel{}
	s := NewChatStore(api, uploader, &fakeIdentity{token: token, userID: selfID}, channel, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	return s, api, uploader, channel
}

func TestChatStore_InboundCreatesConversation(t *testing.T) {
	s, _, _, _ := newChatStore("tok")

	msg := chatAt(100, 42, selfID, 0, false)
	msg.Content = "is the bike still available?"
	msg.SenderNickname = "Partner"
	s.HandleIncoming(msg)

	meta, ok := s.Conversation(42)
	require.True(t, ok)
	assert.Equal(t, 1, meta.UnreadCount)
	assert.Equal(t, msg.Content, meta.LastMessageContent)
	assert.Equal(t, "Partner", meta.PartnerNickname)
	assert.Equal(t, 1, s.TotalUnread())
}

func TestChatStore_SubscribeReceivesMessages(t *testing.T) {
	s, _, _, _ := newChatStore("tok")
	var got []int64
	unsubscribe := s.Subscribe(func(m model.ChatMessage) { got = append(got, m.ID) })

	s.HandleIncoming(chatAt(1, 42, selfID, 0, false))
	unsubscribe()
	s.HandleIncoming(chatAt(2, 42, selfID, time.Minute, false))

	assert.Equal(t, []int64{1}, got)
}

func TestChatStore_SendThenPushIsIdempotent(t *testing.T) {
	s, api, _, channel := newChatStore("tok")

	sent := chatAt(200, selfID, 42, 0, false)
	api.On("Send", mock.Anything, model.SendChatMessageRequest{ReceiverID: 42, Content: "hello", MessageType: model.MessageTypeText}).
		Return(sent, nil)

	// 首尾空白在发送前去掉
	got, err := s.SendMessage(context.Background(), 42, "  hello \n", "")
	require.NoError(t, err)
	require.NotNil(t, got)

	payload, err := json.Marshal(sent)
	require.NoError(t, err)
	s.HandlePayload(payload)

	assert.Len(t, s.Messages(42), 1)
	meta, _ := s.Conversation(42)
	assert.Zero(t, meta.UnreadCount)
	assert.Equal(t, []string{"tok"}, channel.connects, "lazy connect before send")
}

func TestChatStore_SendGuards(t *testing.T) {
	s, api, _, _ := newChatStore("tok")
	got, err := s.SendMessage(context.Background(), 42, "   ", model.MessageTypeText)
	assert.NoError(t, err)
	assert.Nil(t, got)
	api.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)

	anon, _, _, _ := newChatStore("")
	_, err = anon.SendMessage(context.Background(), 42, "hi", model.MessageTypeText)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestChatStore_SendErrorPropagates(t *testing.T) {
	s, api, _, _ := newChatStore("tok")
	boom := errors.New("boom")
	api.On("Send", mock.Anything, mock.Anything).Return(model.ChatMessage{}, boom)

	_, err := s.SendMessage(context.Background(), 42, "hi", model.MessageTypeText)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Messages(42))
}

func TestChatStore_SendImageMessage(t *testing.T) {
	s, api, uploader, _ := newChatStore("tok")
	file := strings.NewReader("png-bytes")

	uploader.On("ChatImage", mock.Anything, "photo.png", file).
		Return(model.UploadResult{URL: "https://cdn/photo.png"}, nil)
	reply := chatAt(300, selfID, 42, 0, false)
	reply.Content = "https://cdn/photo.png"
	reply.MessageType = model.MessageTypeImage
	api.On("Send", mock.Anything, model.SendChatMessageRequest{ReceiverID: 42, Content: "https://cdn/photo.png", MessageType: model.MessageTypeImage}).
		Return(reply, nil)

	_, err := s.SendImageMessage(context.Background(), 42, "photo.png", file)
	require.NoError(t, err)

	meta, _ := s.Conversation(42)
	assert.Equal(t, ImagePreview, meta.LastMessageContent)
	uploader.AssertExpectations(t)
}

func TestChatStore_MarkReadZeroesUnread(t *testing.T) {
	s, api, _, _ := newChatStore("tok")
	api.On("MarkRead", mock.Anything, int64(42)).Return(nil).Once()

	s.HandleIncoming(chatAt(1, 42, selfID, 0, false))
	s.HandleIncoming(chatAt(2, 42, selfID, time.Second, false))
	s.HandleIncoming(chatAt(3, selfID, 42, 2*time.Second, false))

	require.NoError(t, s.MarkPartnerMessagesRead(context.Background(), 42))

	meta, _ := s.Conversation(42)
	assert.Zero(t, meta.UnreadCount)
	for _, m := range s.Messages(42) {
		if m.SenderID == 42 {
			assert.True(t, m.Read)
			assert.NotNil(t, m.ReadAt)
		} else {
			assert.False(t, m.Read)
		}
	}

	// 未读已为0，不再请求
	require.NoError(t, s.MarkPartnerMessagesRead(context.Background(), 42))
	api.AssertNumberOfCalls(t, "MarkRead", 1)
}

func TestChatStore_RefreshReplacesSnapshot(t *testing.T) {
	s, api, _, _ := newChatStore("tok")
	s.HandleIncoming(chatAt(1, 7, selfID, 0, false))

	api.On("Conversations", mock.Anything).Return([]model.Conversation{
		{PartnerID: 42, PartnerNickname: "A", UnreadCount: 2},
	}, nil)

	require.NoError(t, s.RefreshConversations(context.Background()))
	list := s.Conversations()
	require.Len(t, list, 1)
	assert.Equal(t, int64(42), list[0].PartnerID)
}

func TestChatStore_RefreshDroppedAfterLogout(t *testing.T) {
	api := new(MockChatService)
	identity := &fakeIdentity{token: "tok", userID: selfID}
	s := NewChatStore(api, new(MockUploader), identity, &fakeChannel{}, zap.NewNop())

	api.On("Conversations", mock.Anything).
		Run(func(mock.Arguments) { identity.token = "" }).
		Return([]model.Conversation{{PartnerID: 42}}, nil)

	require.NoError(t, s.RefreshConversations(context.Background()))
	assert.Empty(t, s.Conversations())
}

func TestChatStore_LoadMessagesSynthesizesSummary(t *testing.T) {
	s, api, _, _ := newChatStore("tok")
	history := []model.ChatMessage{
		chatAt(2, selfID, 42, time.Second, true),
		chatAt(1, 42, selfID, 0, false),
	}
	api.On("Messages", mock.Anything, int64(42)).Return(history, nil)
	api.On("Messages", mock.Anything, int64(43)).Return([]model.ChatMessage{}, nil)

	require.NoError(t, s.LoadConversationMessages(context.Background(), 42))
	msgs := s.Messages(42)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].ID)

	meta, ok := s.Conversation(42)
	require.True(t, ok)
	assert.Equal(t, 1, meta.UnreadCount)

	require.NoError(t, s.LoadConversationMessages(context.Background(), 43))
	empty, ok := s.Conversation(43)
	require.True(t, ok)
	assert.True(t, empty.LastMessageAt.Equal(s.now()))
}

func TestChatStore_NoTokenIsNoop(t *testing.T) {
	s, api, _, channel := newChatStore("")
	ctx := context.Background()

	assert.NoError(t, s.RefreshConversations(ctx))
	assert.NoError(t, s.LoadConversationMessages(ctx, 42))
	assert.NoError(t, s.MarkPartnerMessagesRead(ctx, 42))
	s.Connect()

	assert.Empty(t, channel.connects)
	api.AssertExpectations(t)
}

func TestChatStore_DisconnectClearsHistory(t *testing.T) {
	s, _, _, channel := newChatStore("tok")
	s.Connect()
	s.HandleIncoming(chatAt(1, 42, selfID, 0, false))

	s.Disconnect(false)
	assert.Len(t, s.Conversations(), 1)

	s.Disconnect(true)
	assert.Empty(t, s.Conversations())
	assert.Empty(t, s.Messages(42))
	assert.Equal(t, 2, channel.disconnects)
	assert.False(t, s.Connected())
}

func TestChatStore_EnsureConversation(t *testing.T) {
	s, _, _, _ := newChatStore("tok")
	s.EnsureConversation(42, "Seller")
	s.EnsureConversation(42, "")

	meta, ok := s.Conversation(42)
	require.True(t, ok)
	assert.Equal(t, "Seller", meta.PartnerNickname)
}

func TestChatStore_MalformedPayloadDropped(t *testing.T) {
	s, _, _, _ := newChatStore("tok")
	s.HandlePayload([]byte("{not json"))
	assert.Empty(t, s.Conversations())
}
