package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"campus_market/config"
	"campus_market/global"
	"campus_market/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 程序主入口
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Exit(1)
	}
}

// cli 命令行共享的参数与客户端实例
type cli struct {
	configPath string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
	app    *service.App
}

// execute 执行一次命令，结束后释放所有连接
func execute(ctx context.Context, args []string, out io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	defer c.close()
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "marketctl",
		Short:             "Campus second-hand market client",
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "conf/conf.yaml", "Config file path")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 15*time.Second, "Per-operation timeout")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.goodsCmd(),
		c.cartCmd(),
		c.ordersCmd(),
		c.chatCmd(),
		c.flashCmd(),
		c.diagCmd(),
		c.consoleCmd(),
	)
	return root
}

// setup 加载配置并组装客户端，恢复上次保存的会话
func (c *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := global.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	c.logger = logger

	ctx, cancel := c.opContext(cmd)
	defer cancel()
	app, err := service.NewApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init client failed: %w", err)
	}
	c.app = app
	return app.Start(ctx)
}

func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Shutdown(); err != nil {
			c.logger.Warn("Client shutdown timed out", zap.Error(err))
		}
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// opContext 单次操作的超时上下文
func (c *cli) opContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

// print 以缩进JSON输出
func (c *cli) print(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}

func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, s)
	}
	return id, nil
}

func parseDecimal(s, name string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return &v, nil
}
