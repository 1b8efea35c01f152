package main

import (
	"os"
	"path/filepath"

	"campus_market/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (c *cli) goodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goods",
		Short: "Browse, publish and review goods",
	}
	cmd.AddCommand(
		c.goodsListCmd(),
		c.goodsShowCmd(),
		c.goodsHotCmd(),
		c.goodsRankingCmd(),
		c.goodsMineCmd(),
		c.goodsPublishCmd(),
		c.goodsDeleteCmd(),
		c.goodsPendingCmd(),
		c.goodsReviewCmd(),
	)
	return cmd
}

func (c *cli) goodsListCmd() *cobra.Command {
	var category, keyword, minPrice, maxPrice string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List approved goods",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := &model.GoodsFilter{Category: category, Keyword: keyword}
			var err error
			if filter.MinPrice, err = parseDecimal(minPrice, "min price"); err != nil {
				return err
			}
			if filter.MaxPrice, err = parseDecimal(maxPrice, "max price"); err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Goods.LoadGoods(ctx, filter); err != nil {
				return err
			}
			return c.print(cmd, c.app.Goods.Items())
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Category")
	cmd.Flags().StringVar(&keyword, "keyword", "", "Keyword")
	cmd.Flags().StringVar(&minPrice, "min-price", "", "Minimum price")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "Maximum price")
	return cmd
}

func (c *cli) goodsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <goods-id>",
		Short: "Show goods detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goods id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Goods.LoadGoodsByID(ctx, id); err != nil {
				return err
			}
			c.app.Goods.RecordView(ctx, id)
			item, _ := c.app.Goods.Selected()
			return c.print(cmd, item)
		},
	}
}

func (c *cli) goodsHotCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hot",
		Short: "List hot goods",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Goods.LoadHotGoods(ctx, limit); err != nil {
				return err
			}
			return c.print(cmd, c.app.Goods.HotItems())
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of items")
	return cmd
}

func (c *cli) goodsRankingCmd() *cobra.Command {
	var metric string
	var limit int
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Show the goods ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Goods.LoadRanking(ctx, metric, limit); err != nil {
				return err
			}
			return c.print(cmd, c.app.Goods.RankingItems())
		},
	}
	cmd.Flags().StringVar(&metric, "metric", "", "Ranking metric (orders, views)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of items")
	return cmd
}

func (c *cli) goodsMineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List goods I published",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Goods.LoadMyGoods(ctx); err != nil {
				return err
			}
			return c.print(cmd, c.app.Goods.MyItems())
		},
	}
}

func (c *cli) goodsPublishCmd() *cobra.Command {
	var req model.GoodsCreateRequest
	var price, image string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish goods, optionally uploading a cover image",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := decimal.NewFromString(price)
			if err != nil {
				return err
			}
			req.Price = p

			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if image != "" {
				f, err := os.Open(image)
				if err != nil {
					return err
				}
				defer f.Close()
				uploaded, err := c.app.Uploads.GoodsImage(ctx, filepath.Base(image), f)
				if err != nil {
					return err
				}
				req.CoverImageURL = uploaded.URL
			}
			item, err := c.app.Goods.CreateGoods(ctx, req)
			if err != nil {
				return err
			}
			return c.print(cmd, item)
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	cmd.Flags().StringVar(&req.Category, "category", "", "Category")
	cmd.Flags().IntVar(&req.Quantity, "quantity", 1, "Quantity")
	cmd.Flags().StringVar(&price, "price", "", "Price")
	cmd.Flags().StringVar(&image, "image", "", "Cover image file")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func (c *cli) goodsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <goods-id>",
		Short: "Delete goods I published",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goods id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			return c.app.Goods.DeleteGoods(ctx, id)
		},
	}
}

func (c *cli) goodsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List goods waiting for review (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			if err := c.app.Goods.LoadPendingGoods(ctx); err != nil {
				return err
			}
			return c.print(cmd, c.app.Goods.PendingItems())
		},
	}
}

func (c *cli) goodsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "review <goods-id> <APPROVED|REJECTED>",
		Short:     "Approve or reject goods (admin)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{model.GoodsStatusApproved, model.GoodsStatusRejected},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "goods id")
			if err != nil {
				return err
			}
			ctx, cancel := c.opContext(cmd)
			defer cancel()
			item, err := c.app.Goods.ReviewGoods(ctx, id, args[1])
			if err != nil {
				return err
			}
			return c.print(cmd, item)
		},
	}
}
