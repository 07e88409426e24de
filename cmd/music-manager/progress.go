package main

import (
	"github.com/handiism/music-manager/internal/download"
	"go.uber.org/zap"
)

// progressLogger forwards progress events to log. Verbose events are
// logged at debug level and only shown with -v.
func progressLogger(log *zap.SugaredLogger) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		switch event.Level {
		case download.LevelVerbose:
			log.Debug(event.Message)
		case download.LevelWarning:
			log.Warn(event.Message)
		case download.LevelError:
			log.Error(event.Message)
		case download.LevelSuccess:
			log.Infow(event.Message, "status", "ok")
		default:
			log.Info(event.Message)
		}
	}
}
