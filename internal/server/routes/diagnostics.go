package routes

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/loader"
	"github.com/img-hub/img-hub/internal/tiered"
	"github.com/img-hub/img-hub/internal/version"
)

// CacheRouteOptions 汇总诊断接口依赖的运行时组件。
type CacheRouteOptions struct {
	Coordinator *tiered.Coordinator
	Registry    *loader.Registry
	Logger      *logrus.Logger
}

// RegisterCacheRoutes 暴露 /-/ 诊断与运维接口，供 SRE 查询缓存状态并触发清理。
func RegisterCacheRoutes(app *fiber.App, opts CacheRouteOptions) {
	if app == nil || opts.Coordinator == nil || opts.Registry == nil {
		return
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": version.Version})
	})

	app.Get("/-/stats", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return c.JSON(buildStats(ctx, opts.Coordinator, opts.Registry))
	})

	app.Delete("/-/cache", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		rawURL := strings.TrimSpace(c.Query("url"))
		if rawURL == "" {
			purged := opts.Coordinator.PurgeMemory()
			logger.WithFields(logrus.Fields{
				"action":  "cache_purge",
				"entries": purged,
			}).Info("memory_cache_purged")
			return c.JSON(fiber.Map{"purged_entries": purged})
		}

		dropped := opts.Registry.Drop(rawURL)
		if err := opts.Coordinator.Evict(ctx, rawURL); err != nil {
			logger.WithFields(logrus.Fields{
				"action": "cache_evict",
				"key":    rawURL,
				"error":  err.Error(),
			}).Error("cache_evict_failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "evict_failed"})
		}
		logger.WithFields(logrus.Fields{
			"action":         "cache_evict",
			"key":            rawURL,
			"loader_dropped": dropped,
		}).Info("cache_entry_evicted")
		return c.JSON(fiber.Map{"evicted": true, "loader_dropped": dropped})
	})
}

type statsPayload struct {
	Version string             `json:"version"`
	Memory  memoryStatsPayload `json:"memory"`
	Disk    diskStatsPayload   `json:"disk"`
	Loaders loaderStatsPayload `json:"loaders"`
}

type memoryStatsPayload struct {
	UsageBytes      int64 `json:"usage_bytes"`
	ResidentEntries int   `json:"resident_entries"`
	ResidentCost    int64 `json:"resident_cost_bytes"`
	LimitBytes      int64 `json:"limit_bytes"`
}

type diskStatsPayload struct {
	UsageBytes int64 `json:"usage_bytes"`
	Available  bool  `json:"available"`
}

type loaderStatsPayload struct {
	Registered int `json:"registered"`
}

func buildStats(ctx context.Context, coordinator *tiered.Coordinator, registry *loader.Registry) statsPayload {
	stats := statsPayload{
		Version: version.Version,
		Memory: memoryStatsPayload{
			UsageBytes:      coordinator.MemoryUsage(),
			ResidentEntries: coordinator.ResidentEntries(),
			ResidentCost:    coordinator.ResidentCost(),
			LimitBytes:      coordinator.CostLimit(),
		},
		Loaders: loaderStatsPayload{Registered: registry.Size()},
	}
	if used, err := coordinator.DiskUsage(ctx); err == nil {
		stats.Disk = diskStatsPayload{UsageBytes: used, Available: true}
	}
	return stats
}
