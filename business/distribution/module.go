// Package distribution implements the revenue distribution bounded context.
package distribution

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/distribution/app"
	distributionDI "github.com/fd1az/backrun-engine/business/distribution/di"
	"github.com/fd1az/backrun-engine/business/distribution/domain"
	"github.com/fd1az/backrun-engine/business/execution/infra/memledger"
	"github.com/fd1az/backrun-engine/internal/access"
	"github.com/fd1az/backrun-engine/internal/config"
	"github.com/fd1az/backrun-engine/internal/di"
	"github.com/fd1az/backrun-engine/internal/logger"
	"github.com/fd1az/backrun-engine/internal/monolith"
)

// Module implements the distribution bounded context.
type Module struct{}

// RegisterServices registers all distribution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, distributionDI.Splitter, func(sr di.ServiceRegistry) *app.Splitter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledger := sr.Get("ledger").(*memledger.Ledger)

		auth := access.NewAllowList(cfg.Engine.AdminAddressHex())
		splitter, err := app.NewSplitter(ledger, auth, cfg.Distribution.FallbackHex(), log)
		if err != nil {
			panic("failed to create splitter: " + err.Error())
		}
		return splitter
	})

	return nil
}

// Startup loads the configured share configs into the splitter.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	splitter := distributionDI.GetSplitter(mono.Services())
	admin := cfg.Engine.AdminAddressHex()

	for _, sc := range cfg.Distribution.Configs {
		entries := make([]domain.Entry, 0, len(sc.Entries))
		for _, e := range sc.Entries {
			entries = append(entries, domain.Entry{
				Recipient: common.HexToAddress(e.Recipient),
				ShareBps:  e.ShareBps,
			})
		}
		dc := domain.Config{ID: sc.ID, Entries: entries}
		if err := splitter.SetConfig(ctx, admin, dc); err != nil {
			return err
		}
	}

	log.Info(ctx, "distribution module started",
		"configs", len(cfg.Distribution.Configs),
		"fallback", cfg.Distribution.Fallback,
	)
	return nil
}
