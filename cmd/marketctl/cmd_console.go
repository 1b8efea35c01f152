package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"campus_market/web/router"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) consoleCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Serve the local console until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port <= 0 {
				port = c.app.Config.Console.Port
			}
			if !c.app.Config.Log.Development {
				gin.SetMode(gin.ReleaseMode)
			}

			server := &http.Server{
				Addr:              fmt.Sprintf("127.0.0.1:%d", port),
				Handler:           router.InitRouter(c.app),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.logger.Info("Console started", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("console failed: %w", err)
				}
				return nil
			case <-cmd.Context().Done():
			}

			c.logger.Info("Shutting down console...")
			// 设置优雅关闭超时时间
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				c.logger.Warn("Console forced to shutdown", zap.Error(err))
				return err
			}
			c.logger.Info("Console gracefully stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	return cmd
}
