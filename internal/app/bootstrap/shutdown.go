// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, then closes the publisher, Redis and
// MongoDB in that order. Every step runs; the errors are joined.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var errs []error

	if rt := deps.Runtime; rt != nil {
		if rt.Scheduler != nil {
			if err := rt.Scheduler.Stop(ctx); err != nil {
				logger.Warn("scheduler stop timed out", zap.Error(err))
				errs = append(errs, err)
			}
		}
		if rt.Gauges != nil {
			rt.Gauges.Stop()
		}
		if rt.Publisher != nil {
			if err := rt.Publisher.Close(); err != nil {
				logger.Error("publisher close failed", zap.Error(err))
				errs = append(errs, err)
			}
		}
	}

	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Error("redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}

	if deps.MerakiMongoClient != nil {
		logger.Info("disconnecting Meraki MongoDB client")
		if err := deps.MerakiMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
