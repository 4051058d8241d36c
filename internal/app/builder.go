package app

import (
	"context"

	trcfg "tradereview/internal/config"
	"tradereview/internal/profile"
	"tradereview/internal/review"
)

// appBuilderDeps 供 wire 注入时以接口形式消费 AppBuilder。
type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

// AppBuilder 把配置装配成可运行的 App。
type AppBuilder struct {
	cfg *trcfg.Config
}

func NewAppBuilder(cfg *trcfg.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// Build 初始化档案注册表、查询服务与 HTTP 入口。
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	registry, err := profile.NewRegistry(b.cfg.Data.ProfilePath)
	if err != nil {
		return nil, err
	}
	instruments := make([]review.Instrument, 0, len(b.cfg.Instruments))
	for _, inst := range b.cfg.Instruments {
		instruments = append(instruments, review.Instrument{
			ID:         inst.ID,
			BarsPath:   inst.Bars,
			TradesPath: inst.Trades,
			Profile:    inst.Profile,
		})
	}
	svc, err := review.NewService(instruments, registry)
	if err != nil {
		return nil, err
	}
	httpSrv, err := review.NewHTTPServer(review.HTTPConfig{
		Addr:         b.cfg.App.HTTPAddr,
		Service:      svc,
		AllowOrigins: b.cfg.Review.AllowOrigins,
	})
	if err != nil {
		return nil, err
	}
	return &App{cfg: b.cfg, http: httpSrv}, nil
}
