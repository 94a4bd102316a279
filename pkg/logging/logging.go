// Package logging builds the zap logger shared by the server and tools.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger for development and JSON otherwise. An
// unknown level keeps the preset's default.
func New(dev bool, level string) *zap.Logger {
	var zc zap.Config
	if dev {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := zc.Build()
	if err != nil {
		return zap.NewExample()
	}
	return l
}
