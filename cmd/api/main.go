package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lisa-assistant/internal/app"
	"lisa-assistant/internal/app/api"
	"lisa-assistant/pkg/config"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		modelPath  string
		port       int
	)
	cmd := &cobra.Command{
		Use:           "lisa-api",
		Short:         "LISA voice assistant HTTP/WebSocket service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithModel(configPath, modelPath)
			if err != nil {
				return fmt.Errorf("加载配置失败: %w", err)
			}
			if port > 0 {
				cfg.API.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "configs/api.yaml", "service config file")
	cmd.Flags().StringVar(&modelPath, "model", "configs/model.yaml", "model config file, empty to skip")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override api.port")
	return cmd
}

func listenAddr(c config.APIConfig) string {
	port := c.Port
	if port <= 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// serve 运行 API 直到 ctx 结束，然后在 shutdownTimeout 内优雅关闭
func serve(ctx context.Context, cfg *config.Config) error {
	bootstrap, err := app.NewBootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("初始化失败: %w", err)
	}
	application, err := api.NewApp(ctx, bootstrap)
	if err != nil {
		_ = bootstrap.Close()
		return fmt.Errorf("创建 API 应用失败: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := application.Run(listenAddr(cfg.API)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		fmt.Fprintf(os.Stderr, "API 服务异常退出: %v\n", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("关闭失败: %w", err))
	}
	log.Println("API 服务已关闭")
	return runErr
}
