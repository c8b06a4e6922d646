// Package hook implements the hook bounded context: the failsafe seam that
// turns observed swap completions into backrun triggers.
package hook

import (
	"context"

	distributionDI "github.com/fd1az/backrun-engine/business/distribution/di"
	executionDI "github.com/fd1az/backrun-engine/business/execution/di"
	"github.com/fd1az/backrun-engine/business/execution/infra/memledger"
	"github.com/fd1az/backrun-engine/business/hook/app"
	hookDI "github.com/fd1az/backrun-engine/business/hook/di"
	"github.com/fd1az/backrun-engine/business/hook/domain"
	"github.com/fd1az/backrun-engine/business/hook/infra/feed"
	"github.com/fd1az/backrun-engine/business/hook/infra/report"
	"github.com/fd1az/backrun-engine/internal/access"
	"github.com/fd1az/backrun-engine/internal/asset"
	"github.com/fd1az/backrun-engine/internal/config"
	"github.com/fd1az/backrun-engine/internal/di"
	"github.com/fd1az/backrun-engine/internal/logger"
	"github.com/fd1az/backrun-engine/internal/monolith"
)

// Module implements the hook bounded context.
type Module struct{}

// RegisterServices registers all hook services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Reporter (private - internal dependency)
	di.RegisterToken(c, hookDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		if cfg.Engine.TUIMode {
			return report.NewTUIReporter(assets)
		}
		return report.NewConsoleReporter(assets)
	})

	// Register Hook (public - exposed to other modules)
	di.RegisterToken(c, hookDI.Hook, func(sr di.ServiceRegistry) *app.Hook {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledger := sr.Get("ledger").(*memledger.Ledger)

		auth := access.NewAllowList(cfg.Engine.AdminAddressHex())
		h, err := app.NewHook(
			executionDI.GetRouter(sr),
			distributionDI.GetSplitter(sr),
			ledger,
			auth,
			app.Config{
				RecipientShareBps: cfg.Engine.RecipientShareBps,
				ConfigID:          cfg.Engine.ConfigID,
			},
			log,
		)
		if err != nil {
			panic("failed to create hook: " + err.Error())
		}
		return h
	})

	// Register Subscriber (private - internal dependency)
	di.RegisterToken(c, hookDI.Subscriber, func(sr di.ServiceRegistry) *feed.Subscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pools, err := cfg.Feed.TrackedPools()
		if err != nil {
			panic("failed to parse tracked pools: " + err.Error())
		}

		subCfg := feed.DefaultSubscriberConfig(cfg.Feed.WebSocketURL, pools)
		if cfg.Feed.EventsPerSecond > 0 {
			subCfg.EventsPerSecond = cfg.Feed.EventsPerSecond
		}
		if cfg.Feed.Burst > 0 {
			subCfg.Burst = cfg.Feed.Burst
		}
		if cfg.Feed.ReadTimeout > 0 {
			subCfg.ReadTimeout = cfg.Feed.ReadTimeout
		}
		if cfg.Feed.WriteTimeout > 0 {
			subCfg.WriteTimeout = cfg.Feed.WriteTimeout
		}

		sub, err := feed.NewSubscriber(subCfg, log)
		if err != nil {
			panic("failed to create swap feed subscriber: " + err.Error())
		}
		return sub
	})

	return nil
}

// Startup wires the swap feed into the hook and starts the subscription.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	services := mono.Services()

	h := hookDI.GetHook(services)
	sub := hookDI.GetSubscriber(services)
	reporter := hookDI.GetReporter(services)

	if err := reporter.Start(ctx); err != nil {
		return err
	}

	sub.OnSwap(func(ctx context.Context, ev *domain.SwapEvent) {
		reporter.ReportSwap(ev)

		result, err := h.OnSwapCompleted(ctx, ev)
		if err != nil {
			// Only invariant violations surface here; everything else is
			// absorbed inside the hook.
			log.Error(ctx, "invariant violation on backrun trigger",
				"pool", ev.Pool.String(),
				"tx", ev.TxHash.Hex(),
				"error", err,
			)
			return
		}
		reporter.ReportCapture(ev, result)
	})

	if err := sub.Start(ctx); err != nil {
		log.Error(ctx, "failed to start swap feed", "error", err)
		return err
	}
	reporter.UpdateFeedStatus(true)

	log.Info(ctx, "hook module started")
	return nil
}
