// Package di contains dependency injection tokens for the distribution context.
package di

import (
	"github.com/fd1az/backrun-engine/business/distribution/app"
	"github.com/fd1az/backrun-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Splitter = di.NewToken[*app.Splitter]("distribution.Splitter")
)

// Helper functions for type-safe access
func GetSplitter(c di.ServiceRegistry) *app.Splitter {
	return di.GetToken(c, Splitter)
}
