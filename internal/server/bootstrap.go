package server

import (
	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/cache"
	"github.com/img-hub/img-hub/internal/config"
)

// BuildStore 初始化磁盘缓存层。目录不可用不是致命错误：返回降级的
// Store，进程以纯内存模式继续服务。
func BuildStore(cfg *config.Config, logger *logrus.Logger) cache.Store {
	store, err := cache.NewStore(cfg.Global.StoragePath)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"action": "cache_bootstrap",
			"path":   cfg.Global.StoragePath,
			"error":  err.Error(),
		}).Warn("cache_dir_unavailable")
		return cache.Unavailable()
	}
	return store
}
