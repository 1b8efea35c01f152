package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"campus_market/model"
)

// ChatAPI 聊天接口
type ChatAPI struct {
	client *Client
}

// NewChatAPI 创建聊天接口
func NewChatAPI(client *Client) *ChatAPI {
	return &ChatAPI{client: client}
}

// Conversations GET /chat/conversations
func (c *ChatAPI) Conversations(ctx context.Context) ([]model.Conversation, error) {
	var resp []model.Conversation
	err := c.client.Get(ctx, "/chat/conversations", nil, &resp)
	return resp, err
}

// Messages GET /chat/messages?partnerId=
func (c *ChatAPI) Messages(ctx context.Context, partnerID int64) ([]model.ChatMessage, error) {
	var resp []model.ChatMessage
	q := url.Values{"partnerId": {strconv.FormatInt(partnerID, 10)}}
	err := c.client.Get(ctx, "/chat/messages", q, &resp)
	return resp, err
}

// MarkRead POST /chat/read/{partnerId}
func (c *ChatAPI) MarkRead(ctx context.Context, partnerID int64) error {
	return c.client.Post(ctx, fmt.Sprintf("/chat/read/%d", partnerID), nil, nil)
}

// Send POST /chat/messages
func (c *ChatAPI) Send(ctx context.Context, req model.SendChatMessageRequest) (model.ChatMessage, error) {
	var resp model.ChatMessage
	err := c.client.Post(ctx, "/chat/messages", req, &resp)
	return resp, err
}
