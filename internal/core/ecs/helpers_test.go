package ecs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func errorCount(logs *observer.ObservedLogs) int {
	return logs.FilterLevelExact(zapcore.ErrorLevel).Len()
}

func newTestWorld() (*World, *observer.ObservedLogs) {
	log, logs := observedLogger()
	w := NewWorld(WithLogger(log))
	return w, logs
}

func setOf(es ...Entity) *EntitySet { return NewEntitySet(es...) }
