/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docmodel

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.SugaredLogger]

func init() {
	logger.Store(zap.NewNop().Sugar())
}

// SetLogger routes library logging to l. A nil logger silences it again.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.Named("docmodel").Sugar())
}

// Logger returns the logger the library writes to.
func Logger() *zap.Logger {
	return log().Desugar()
}

func log() *zap.SugaredLogger {
	return logger.Load()
}
