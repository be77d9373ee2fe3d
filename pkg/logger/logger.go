// pkg/logger/logger.go
package logger

import (
	"go.uber.org/zap"
)

type Sugared = *zap.SugaredLogger

func New(env string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar().Named("holiapp")
}

// Nop returns a logger that discards everything. Used by tests and by
// components constructed without a logger.
func Nop() Sugared { return zap.NewNop().Sugar() }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Sugared) Sugared {
	if l == nil {
		return Nop()
	}
	return l
}
