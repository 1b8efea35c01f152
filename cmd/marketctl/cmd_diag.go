package main

import (
	"context"
	"time"

	"campus_market/model"

	"github.com/spf13/cobra"
)

func (c *cli) diagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diag",
		Short: "Server diagnostics",
	}

	var req model.KafkaDiagnosticsRequest
	var orderID, goodsID int64
	var confirm bool
	var wait time.Duration
	kafka := &cobra.Command{
		Use:   "kafka",
		Short: "Trigger an order event and optionally confirm it on the topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if orderID > 0 {
				req.OrderID = &orderID
			}
			if goodsID > 0 {
				req.GoodsID = &goodsID
			}
			if !confirm {
				ctx, cancel := c.opContext(cmd)
				defer cancel()
				resp, err := c.app.Diagnostics.TriggerOrderEvent(ctx, req)
				if err != nil {
					return err
				}
				return c.print(cmd, resp)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()
			resp, event, err := c.app.Diagnostics.TriggerAndConfirm(ctx, req)
			if err != nil {
				return err
			}
			return c.print(cmd, map[string]any{
				"dispatch": resp,
				"event":    event,
			})
		},
	}
	kafka.Flags().StringVar(&req.Key, "key", "", "Message key")
	kafka.Flags().StringVar(&req.Message, "message", "", "Note attached to the event")
	kafka.Flags().StringVar(&req.CurrentStatus, "status", "", "Current order status")
	kafka.Flags().StringVar(&req.PreviousStatus, "previous-status", "", "Previous order status")
	kafka.Flags().Int64Var(&orderID, "order-id", 0, "Order id")
	kafka.Flags().Int64Var(&goodsID, "goods-id", 0, "Goods id")
	kafka.Flags().BoolVar(&confirm, "confirm", false, "Wait for the event on the Kafka topic")
	kafka.Flags().DurationVar(&wait, "wait", 30*time.Second, "How long to wait for confirmation")

	cmd.AddCommand(kafka)
	return cmd
}
