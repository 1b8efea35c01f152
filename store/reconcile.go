package store

import (
	"sort"
	"time"

	"campus_market/model"

	"github.com/shopspring/decimal"
)

// 本文件中的函数都是纯函数：输入旧集合与变更结果，返回新集合，不修改入参

// GoodsLists 商品相关的几份本地列表
type GoodsLists struct {
	Catalog  []model.Goods // 公开商品列表，只包含审核通过的商品
	Mine     []model.Goods // 我发布的商品
	Pending  []model.Goods // 待审核商品
	Selected *model.Goods  // 当前查看的商品详情
}

// Created 发布成功：审核通过的放入公开列表头部，始终放入我的商品头部
func (l GoodsLists) Created(item model.Goods) GoodsLists {
	if item.IsApproved() {
		l.Catalog = prependGoods(l.Catalog, item)
	}
	l.Mine = prependGoods(l.Mine, item)
	return l
}

// Updated 编辑成功：公开列表只替换不插入，未通过审核则移除
func (l GoodsLists) Updated(item model.Goods) GoodsLists {
	if item.IsApproved() {
		l.Catalog, _ = replaceGoods(l.Catalog, item)
	} else {
		l.Catalog = removeGoods(l.Catalog, item.ID)
	}
	l.Mine, _ = replaceGoods(l.Mine, item)
	l.Selected = replaceSelected(l.Selected, item)
	return l
}

// Reviewed 审核完成：从待审核列表移除，再统一同步其他列表
func (l GoodsLists) Reviewed(item model.Goods) GoodsLists {
	l.Pending = removeGoods(l.Pending, item.ID)
	return l.Synced(item)
}

// Synced 按审核状态同步各列表，这是唯一一条审核通过时插入公开列表的路径
func (l GoodsLists) Synced(item model.Goods) GoodsLists {
	if item.IsApproved() {
		var found bool
		l.Catalog, found = replaceGoods(l.Catalog, item)
		if !found {
			l.Catalog = prependGoods(l.Catalog, item)
		}
	} else {
		l.Catalog = removeGoods(l.Catalog, item.ID)
	}
	l.Mine, _ = replaceGoods(l.Mine, item)
	l.Selected = replaceSelected(l.Selected, item)
	return l
}

// Deleted 删除成功：从公开列表和我的商品移除，清空匹配的详情
func (l GoodsLists) Deleted(id int64) GoodsLists {
	l.Catalog = removeGoods(l.Catalog, id)
	l.Mine = removeGoods(l.Mine, id)
	if l.Selected != nil && l.Selected.ID == id {
		l.Selected = nil
	}
	return l
}

func prependGoods(list []model.Goods, item model.Goods) []model.Goods {
	out := make([]model.Goods, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}

func replaceGoods(list []model.Goods, item model.Goods) ([]model.Goods, bool) {
	out := make([]model.Goods, len(list))
	copy(out, list)
	found := false
	for i := range out {
		if out[i].ID == item.ID {
			out[i] = item
			found = true
		}
	}
	return out, found
}

func removeGoods(list []model.Goods, id int64) []model.Goods {
	out := make([]model.Goods, 0, len(list))
	for _, g := range list {
		if g.ID != id {
			out = append(out, g)
		}
	}
	return out
}

func replaceSelected(selected *model.Goods, item model.Goods) *model.Goods {
	if selected != nil && selected.ID == item.ID {
		cp := item
		return &cp
	}
	return selected
}

// UpsertCartItem 按条目ID替换，不存在则放到头部
func UpsertCartItem(items []model.CartItem, item model.CartItem) []model.CartItem {
	for i := range items {
		if items[i].ID == item.ID {
			out := make([]model.CartItem, len(items))
			copy(out, items)
			out[i] = item
			return out
		}
	}
	out := make([]model.CartItem, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

// ReplaceCartItem 替换指定ID的条目，不存在时原样返回
func ReplaceCartItem(items []model.CartItem, id int64, item model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == id {
			out[i] = item
		}
	}
	return out
}

// RemoveCartItem 移除指定ID的条目
func RemoveCartItem(items []model.CartItem, id int64) []model.CartItem {
	out := make([]model.CartItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// KeepPurchasable 过滤掉已售出或未审核通过的条目，与服务端批量清理的条件一致
func KeepPurchasable(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, 0, len(items))
	for _, it := range items {
		if it.Purchasable() {
			out = append(out, it)
		}
	}
	return out
}

// CartTotals 计算条目数、总件数、总金额；没有价格的条目不计入金额
func CartTotals(items []model.CartItem) (distinct, quantity int, amount decimal.Decimal) {
	amount = decimal.Zero
	for _, it := range items {
		quantity += it.Quantity
		if it.GoodsPrice != nil {
			amount = amount.Add(it.GoodsPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	return len(items), quantity, amount
}

// PrependOrder 新订单放在头部
func PrependOrder(orders []model.Order, order model.Order) []model.Order {
	out := make([]model.Order, 0, len(orders)+1)
	out = append(out, order)
	return append(out, orders...)
}

// ReplaceOrder 按ID替换订单
func ReplaceOrder(orders []model.Order, id int64, order model.Order) []model.Order {
	out := make([]model.Order, len(orders))
	copy(out, orders)
	for i := range out {
		if out[i].ID == id {
			out[i] = order
		}
	}
	return out
}

// PartnerOf 返回消息的聊天对象：发送方与接收方中不是自己的那个
func PartnerOf(msg model.ChatMessage, selfID int64) int64 {
	if msg.SenderID == selfID {
		return msg.ReceiverID
	}
	return msg.SenderID
}

// PreviewOf 会话摘要中的预览文本
func PreviewOf(msg model.ChatMessage) string {
	if msg.MessageType == model.MessageTypeImage {
		return ImagePreview
	}
	return msg.Content
}

// ImagePreview 图片消息的预览占位
const ImagePreview = "[Image]"

// SortMessages 按时间升序排序，返回新切片
func SortMessages(list []model.ChatMessage) []model.ChatMessage {
	out := make([]model.ChatMessage, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp.Time)
	})
	return out
}

// UpsertMessage 按消息ID替换或追加，然后重新排序
// 返回新列表以及被替换的旧消息（不存在时为nil）
func UpsertMessage(list []model.ChatMessage, msg model.ChatMessage) ([]model.ChatMessage, *model.ChatMessage) {
	out := make([]model.ChatMessage, len(list), len(list)+1)
	copy(out, list)
	var previous *model.ChatMessage
	for i := range out {
		if out[i].ID == msg.ID {
			old := out[i]
			previous = &old
			out[i] = msg
			break
		}
	}
	if previous == nil {
		out = append(out, msg)
	}
	return SortMessages(out), previous
}

// ApplyMessage 用一条消息更新会话摘要
// 未读数只统计收到的、未读的消息；重复投递同一条消息不会重复计数
func ApplyMessage(meta model.Conversation, exists bool, msg model.ChatMessage, selfID int64, previous *model.ChatMessage) model.Conversation {
	partnerID := PartnerOf(msg, selfID)
	inbound := msg.ReceiverID == selfID

	if !exists {
		meta = model.Conversation{PartnerID: partnerID}
	}

	nickname := msg.ReceiverNickname
	if inbound {
		nickname = msg.SenderNickname
	}
	if nickname != "" {
		meta.PartnerNickname = nickname
	}

	// 乱序到达的旧消息不回退预览
	if !exists || !msg.Timestamp.Before(meta.LastMessageAt.Time) {
		meta.LastMessageContent = PreviewOf(msg)
		meta.MessageType = msg.MessageType
		meta.LastMessageAt = msg.Timestamp
	}

	if inbound {
		wasUnread := previous != nil && !previous.Read
		switch {
		case !msg.Read && !wasUnread:
			meta.UnreadCount++
		case msg.Read && wasUnread && meta.UnreadCount > 0:
			meta.UnreadCount--
		}
	}
	return meta
}

// SummarizeHistory 在没有会话摘要时根据完整历史生成一条
func SummarizeHistory(partnerID int64, history []model.ChatMessage, selfID int64, now time.Time) model.Conversation {
	if len(history) == 0 {
		return model.Conversation{PartnerID: partnerID, LastMessageAt: model.NewTimestamp(now)}
	}
	last := history[len(history)-1]
	nickname := last.SenderNickname
	if last.SenderID == selfID {
		nickname = last.ReceiverNickname
	}
	unread := 0
	for _, m := range history {
		if m.ReceiverID == selfID && !m.Read {
			unread++
		}
	}
	return model.Conversation{
		PartnerID:          partnerID,
		PartnerNickname:    nickname,
		LastMessageContent: PreviewOf(last),
		MessageType:        last.MessageType,
		LastMessageAt:      last.Timestamp,
		UnreadCount:        unread,
	}
}

// MarkPartnerRead 将对方发来的未读消息标记为已读，返回新列表与翻转数量
func MarkPartnerRead(list []model.ChatMessage, partnerID int64, at time.Time) ([]model.ChatMessage, int) {
	out := make([]model.ChatMessage, len(list))
	copy(out, list)
	readAt := model.NewTimestamp(at)
	flipped := 0
	for i := range out {
		if out[i].SenderID == partnerID && !out[i].Read {
			out[i].Read = true
			ts := readAt
			out[i].ReadAt = &ts
			flipped++
		}
	}
	return out, flipped
}

// SortConversations 按最后消息时间倒序
func SortConversations(list []model.Conversation) []model.Conversation {
	out := make([]model.Conversation, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastMessageAt.Equal(out[j].LastMessageAt.Time) {
			return out[i].PartnerID < out[j].PartnerID
		}
		return out[i].LastMessageAt.After(out[j].LastMessageAt.Time)
	})
	return out
}
