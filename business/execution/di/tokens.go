// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/backrun-engine/business/execution/app"
	"github.com/fd1az/backrun-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Router = di.NewToken[*app.Router]("execution.Router")
)

// Private dependency tokens - internal to execution module
var (
	Quoter          = di.NewToken[app.Quoter]("execution:quoter")
	AdapterRegistry = di.NewToken[*app.AdapterRegistry]("execution:adapterRegistry")
	PoolResolver    = di.NewToken[app.PoolResolver]("execution:poolResolver")
	RouteExecutor   = di.NewToken[*app.RouteExecutor]("execution:routeExecutor")
)

// Helper functions for type-safe access
func GetRouter(c di.ServiceRegistry) *app.Router {
	return di.GetToken(c, Router)
}

func GetQuoter(c di.ServiceRegistry) app.Quoter {
	return di.GetToken(c, Quoter)
}

func GetAdapterRegistry(c di.ServiceRegistry) *app.AdapterRegistry {
	return di.GetToken(c, AdapterRegistry)
}

func GetPoolResolver(c di.ServiceRegistry) app.PoolResolver {
	return di.GetToken(c, PoolResolver)
}

func GetRouteExecutor(c di.ServiceRegistry) *app.RouteExecutor {
	return di.GetToken(c, RouteExecutor)
}
