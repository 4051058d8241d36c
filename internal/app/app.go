package app

import (
	"context"
	"fmt"

	trcfg "tradereview/internal/config"
	"tradereview/internal/logger"
	"tradereview/internal/review"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置 → 初始化依赖 → 启动查询服务。
type App struct {
	cfg  *trcfg.Config
	http *review.HTTPServer
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *trcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务，阻塞直到 ctx 取消或出现错误。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Infof("review http 服务启动: %s", a.cfg.App.HTTPAddr)
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("review http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}
