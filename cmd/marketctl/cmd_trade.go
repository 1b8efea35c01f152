package main

import (
	"fmt"
	"strconv"
	"time"

	"campus_market/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the shopping cart",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List cart items with totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Cart.LoadCart(ctx); err != nil {
				return err
			}
			return c.print(cmd, map[string]any{
				"items":   c.app.Cart.Items(),
				"summary": c.app.Cart.Summary(),
			})
		},
	}

	var quantity int
	add := &cobra.Command{
		Use:   "add <goods-id>",
		Short: "Add goods to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goods id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			item, err := c.app.Cart.AddToCart(ctx, id, quantity)
			if err != nil {
				return err
			}
			return c.print(cmd, item)
		},
	}
	add.Flags().IntVarP(&quantity, "quantity", "q", 1, "Quantity")

	update := &cobra.Command{
		Use:   "update <cart-item-id> <quantity>",
		Short: "Change the quantity of a cart item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "cart item id")
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil || qty <= 0 {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			item, err := c.app.Cart.UpdateQuantity(ctx, id, qty)
			if err != nil {
				return err
			}
			return c.print(cmd, item)
		},
	}

	remove := &cobra.Command{
		Use:   "remove <cart-item-id>",
		Short: "Remove a cart item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "cart item id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			return c.app.Cart.RemoveItem(ctx, id)
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove sold or unapproved goods from the cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			removed, err := c.app.Cart.PurgeSoldItems(ctx)
			if err != nil {
				return err
			}
			return c.print(cmd, map[string]int{"removed": removed})
		},
	}

	cmd.AddCommand(list, add, update, remove, purge)
	return cmd
}

func (c *cli) ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Submit and track orders",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List my orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Orders.LoadOrders(ctx); err != nil {
				return err
			}
			return c.print(cmd, c.app.Orders.Orders())
		},
	}

	submit := &cobra.Command{
		Use:   "submit <goods-id>",
		Short: "Place an order for goods",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goods id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			order, err := c.app.Orders.SubmitOrder(ctx, id)
			if err != nil {
				return err
			}
			return c.print(cmd, order)
		},
	}

	status := &cobra.Command{
		Use:   "status <order-id> <status>",
		Short: "Change an order status, e.g. CANCELED or COMPLETED",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "order id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			order, err := c.app.Orders.ChangeStatus(ctx, id, args[1])
			if err != nil {
				return err
			}
			return c.print(cmd, order)
		},
	}

	cmd.AddCommand(list, submit, status)
	return cmd
}

func (c *cli) flashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flash",
		Short: "Flash sale items",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List flash sale items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.FlashSale.LoadItems(ctx); err != nil {
				return err
			}
			return c.print(cmd, c.app.FlashSale.Items())
		},
	}

	buy := &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Purchase a flash sale item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "item id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			// 先加载列表，便于在本地判断活动状态与库存
			if err := c.app.FlashSale.LoadItems(ctx); err != nil {
				return err
			}
			result, err := c.app.FlashSale.Purchase(ctx, id)
			if err != nil {
				return err
			}
			return c.print(cmd, result)
		},
	}

	var req model.FlashSaleItemCreateRequest
	var original, flash string
	var start, duration time.Duration
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a flash sale item (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := decimal.NewFromString(original)
			if err != nil {
				return fmt.Errorf("invalid original price: %w", err)
			}
			f, err := decimal.NewFromString(flash)
			if err != nil {
				return fmt.Errorf("invalid flash price: %w", err)
			}
			begin := time.Now().Add(start)
			req.OriginalPrice, req.FlashPrice = o, f
			req.StartTime = model.NewTimestamp(begin)
			req.EndTime = model.NewTimestamp(begin.Add(duration))

			ctx, cancel := c.opContext(cmd)
			defer cancel()
			item, err := c.app.FlashSale.CreateItem(ctx, req)
			if err != nil {
				return err
			}
			return c.print(cmd, item)
		},
	}
	create.Flags().StringVar(&req.Title, "title", "", "Title")
	create.Flags().StringVar(&req.Description, "description", "", "Description")
	create.Flags().IntVar(&req.TotalStock, "stock", 1, "Total stock")
	create.Flags().StringVar(&original, "original-price", "", "Original price")
	create.Flags().StringVar(&flash, "flash-price", "", "Flash sale price")
	create.Flags().DurationVar(&start, "starts-in", 0, "Delay before the sale starts")
	create.Flags().DurationVar(&duration, "duration", time.Hour, "Sale duration")
	_ = create.MarkFlagRequired("title")
	_ = create.MarkFlagRequired("original-price")
	_ = create.MarkFlagRequired("flash-price")

	cmd.AddCommand(list, buy, create)
	return cmd
}
