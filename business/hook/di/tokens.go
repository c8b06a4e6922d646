// Package di contains dependency injection tokens for the hook context.
package di

import (
	"github.com/fd1az/backrun-engine/business/hook/app"
	"github.com/fd1az/backrun-engine/business/hook/infra/feed"
	"github.com/fd1az/backrun-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Hook = di.NewToken[*app.Hook]("hook.Hook")
)

// Private dependency tokens - internal to hook module
var (
	Subscriber = di.NewToken[*feed.Subscriber]("hook:subscriber")
	Reporter   = di.NewToken[app.Reporter]("hook:reporter")
)

// Helper functions for type-safe access
func GetHook(c di.ServiceRegistry) *app.Hook {
	return di.GetToken(c, Hook)
}

func GetSubscriber(c di.ServiceRegistry) *feed.Subscriber {
	return di.GetToken(c, Subscriber)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
