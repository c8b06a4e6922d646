// Package execution implements the execution bounded context: quoting,
// adapter conventions, and route execution against the book.
package execution

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/execution/app"
	executionDI "github.com/fd1az/backrun-engine/business/execution/di"
	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/execution/infra/memledger"
	"github.com/fd1az/backrun-engine/business/execution/infra/quoterhttp"
	"github.com/fd1az/backrun-engine/business/execution/infra/simpool"
	"github.com/fd1az/backrun-engine/internal/config"
	"github.com/fd1az/backrun-engine/internal/di"
	"github.com/fd1az/backrun-engine/internal/logger"
	"github.com/fd1az/backrun-engine/internal/monolith"
)

// Module implements the execution bounded context.
type Module struct{}

// RegisterServices registers all execution services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Quoter (private - internal dependency)
	di.RegisterToken(c, executionDI.Quoter, func(sr di.ServiceRegistry) app.Quoter {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := quoterhttp.NewClient(quoterhttp.Config{
			BaseURL: cfg.Quoter.BaseURL,
			Timeout: cfg.Quoter.Timeout,
		}, log)
		if err != nil {
			panic("failed to create quoter client: " + err.Error())
		}
		return client
	})

	// Register AdapterRegistry (private - internal dependency)
	di.RegisterToken(c, executionDI.AdapterRegistry, func(sr di.ServiceRegistry) *app.AdapterRegistry {
		return app.NewAdapterRegistry()
	})

	// Register PoolResolver (private - internal dependency)
	di.RegisterToken(c, executionDI.PoolResolver, func(sr di.ServiceRegistry) app.PoolResolver {
		cfg := sr.Get("config").(*config.Config)
		ledger := sr.Get("ledger").(*memledger.Ledger)

		resolver := simpool.NewResolver()
		for _, pc := range cfg.Feed.Pools {
			if !pc.HasPair() {
				continue
			}
			dex, err := domain.ParseDexProtocolType(pc.Dex)
			if err != nil {
				panic("failed to build pool resolver: " + err.Error())
			}
			addr := common.HexToAddress(pc.Address)
			pool, err := simpool.NewPool(ledger, addr,
				common.HexToAddress(pc.Token0), common.HexToAddress(pc.Token1), pc.FeeBps)
			if err != nil {
				panic("failed to build pool resolver: " + err.Error())
			}
			resolver.Register(domain.PoolRef{
				ID:  common.BytesToHash(addr.Bytes()),
				Dex: dex,
			}, pool)
		}
		return resolver
	})

	// Register RouteExecutor (private - internal dependency)
	di.RegisterToken(c, executionDI.RouteExecutor, func(sr di.ServiceRegistry) *app.RouteExecutor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledger := sr.Get("ledger").(*memledger.Ledger)

		return app.NewRouteExecutor(
			ledger,
			executionDI.GetPoolResolver(sr),
			executionDI.GetAdapterRegistry(sr),
			cfg.Engine.BookAddressHex(),
			log,
		)
	})

	// Register Router (public - exposed to other modules)
	di.RegisterToken(c, executionDI.Router, func(sr di.ServiceRegistry) *app.Router {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		ledger := sr.Get("ledger").(*memledger.Ledger)

		router, err := app.NewRouter(
			executionDI.GetQuoter(sr),
			executionDI.GetRouteExecutor(sr),
			ledger,
			cfg.Engine.BookAddressHex(),
			log,
		)
		if err != nil {
			panic("failed to create router: " + err.Error())
		}
		return router
	})

	return nil
}

// Startup seeds the book with working capital and pool reserves.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()
	ledger := mono.Ledger()

	for _, f := range cfg.Engine.Funding {
		amount, err := f.AmountInt()
		if err != nil {
			return err
		}
		ledger.Mint(f.TokenHex(), cfg.Engine.BookAddressHex(), amount)
	}

	for _, pc := range cfg.Feed.Pools {
		if !pc.HasPair() {
			continue
		}
		addr := common.HexToAddress(pc.Address)
		r0, err := pc.ReserveInt(pc.Reserve0)
		if err != nil {
			return err
		}
		r1, err := pc.ReserveInt(pc.Reserve1)
		if err != nil {
			return err
		}
		ledger.Mint(common.HexToAddress(pc.Token0), addr, r0)
		ledger.Mint(common.HexToAddress(pc.Token1), addr, r1)
	}

	// Force construction so a bad quoter config fails at startup.
	executionDI.GetRouter(mono.Services())

	log.Info(ctx, "execution module started",
		"book", cfg.Engine.BookAddress,
		"funding_entries", len(cfg.Engine.Funding),
	)
	return nil
}
