package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"campus_market/model"
	"campus_market/store"

	"github.com/spf13/cobra"
)

func (c *cli) chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Conversations and messages",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Chat.RefreshConversations(ctx); err != nil {
				return err
			}
			return c.print(cmd, c.app.Chat.Conversations())
		},
	}

	history := &cobra.Command{
		Use:   "history <partner-id>",
		Short: "Show messages with a partner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parseID(args[0], "partner id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Chat.LoadConversationMessages(ctx, partnerID); err != nil {
				return err
			}
			return c.print(cmd, c.app.Chat.Messages(partnerID))
		},
	}

	send := &cobra.Command{
		Use:   "send <partner-id> <content...>",
		Short: "Send a text message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parseID(args[0], "partner id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			msg, err := c.app.Chat.SendMessage(ctx, partnerID, strings.Join(args[1:], " "), model.MessageTypeText)
			if err != nil {
				return err
			}
			if msg == nil {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "empty message ignored")
				return err
			}
			return c.print(cmd, msg)
		},
	}

	image := &cobra.Command{
		Use:   "image <partner-id> <file>",
		Short: "Upload and send an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parseID(args[0], "partner id")
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := c.opContext(cmd)
			defer cancel()
			msg, err := c.app.Chat.SendImageMessage(ctx, partnerID, filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			return c.print(cmd, msg)
		},
	}

	read := &cobra.Command{
		Use:   "read <partner-id>",
		Short: "Mark messages from a partner as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			partnerID, err := parseID(args[0], "partner id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			// 未读数来自会话列表，先刷新
			if err := c.app.Chat.RefreshConversations(ctx); err != nil {
				return err
			}
			return c.app.Chat.MarkPartnerMessagesRead(ctx, partnerID)
		},
	}

	listen := &cobra.Command{
		Use:   "listen",
		Short: "Print incoming messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.Session.IsAuthenticated() {
				return fmt.Errorf("please login first")
			}
			out := cmd.OutOrStdout()
			unsubscribe := c.app.Chat.Subscribe(func(m model.ChatMessage) {
				fmt.Fprintf(out, "[%s] %s(%d) -> %d: %s\n",
					m.Timestamp.Format("2006-01-02 15:04:05"),
					m.SenderNickname, m.SenderID, m.ReceiverID, messageText(m))
			})
			defer unsubscribe()

			c.app.Chat.Connect()
			c.logger.Info("Listening for chat messages, press Ctrl+C to stop")
			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.AddCommand(list, history, send, image, read, listen)
	return cmd
}

// messageText 图片消息显示占位与地址
func messageText(m model.ChatMessage) string {
	if m.MessageType == model.MessageTypeImage {
		return store.ImagePreview + " " + m.Content
	}
	return m.Content
}
