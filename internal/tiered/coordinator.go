package tiered

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/img-hub/img-hub/internal/cache"
	"github.com/img-hub/img-hub/internal/imaging"
	"github.com/img-hub/img-hub/internal/memcache"
	"github.com/img-hub/img-hub/internal/usage"
)

// Options 描述两级缓存协调器的构造参数。
type Options struct {
	// CostLimit 为内存层成本上限（字节），必须大于 0。
	CostLimit int64
	// Disk 为磁盘层，可传 nil 表示纯内存降级运行。
	Disk cache.Store
	// Tracker 记录内存层驻留字节数，传 nil 时内部新建。
	Tracker *usage.Tracker
	Logger  *logrus.Logger
}

// Coordinator 在内存层与磁盘层之间协调读写：查找顺序为内存 → 磁盘，
// 磁盘命中解码后晋升回内存；写入先进内存再落盘，磁盘失败只记日志。
// 内存层每次淘汰都会从 Tracker 扣除对应成本，保证用量账目最终一致。
type Coordinator struct {
	memory  *memcache.Cache[*imaging.Asset]
	disk    cache.Store
	tracker *usage.Tracker
	logger  *logrus.Logger
	promote singleflight.Group
}

// New 构建协调器并装配内存层的淘汰回调。
func New(opts Options) (*Coordinator, error) {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = usage.NewTracker()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	disk := opts.Disk
	if disk == nil {
		disk = cache.Unavailable()
	}

	memory, err := memcache.New[*imaging.Asset](memcache.Options{
		CostLimit: opts.CostLimit,
		OnEvict: func(key string, cost int64) {
			tracker.Subtract(cost)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		memory:  memory,
		disk:    disk,
		tracker: tracker,
		logger:  logger,
	}, nil
}

// Lookup 依次查内存与磁盘。磁盘命中时解码并晋升回内存；解码失败按
// 未命中处理。未命中不会产生任何磁盘写入。并发的同键磁盘晋升会被
// 合并成一次。
func (c *Coordinator) Lookup(ctx context.Context, key string) (*imaging.Asset, bool) {
	if asset, ok := c.memory.Get(key); ok {
		return asset, true
	}

	v, _, _ := c.promote.Do(key, func() (interface{}, error) {
		if asset, ok := c.memory.Get(key); ok {
			return asset, nil
		}

		data, err := c.disk.Read(ctx, key)
		if err != nil {
			if !errors.Is(err, cache.ErrNotFound) {
				c.logger.WithFields(logrus.Fields{
					"action": "cache_disk_read_failed",
					"key":    key,
					"error":  err.Error(),
				}).Warn("disk_read_failed")
			}
			return nil, nil
		}

		asset, err := imaging.Decode(data)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"action": "cache_decode_failed",
				"key":    key,
				"error":  err.Error(),
			}).Warn("disk_entry_undecodable")
			return nil, nil
		}

		cost := asset.EncodedSize()
		c.memory.Put(key, asset, cost)
		c.tracker.Add(cost)
		c.logger.WithFields(logrus.Fields{
			"action": "cache_promoted",
			"key":    key,
			"cost":   cost,
		}).Debug("disk_entry_promoted")
		return asset, nil
	})

	asset, _ := v.(*imaging.Asset)
	if asset == nil {
		return nil, false
	}
	return asset, true
}

// Store 把资产写入两级缓存。编码失败时内存写入仍进行，成本按哨兵值 1
// 记账且跳过落盘；磁盘写入失败只记日志，内存条目保持有效。
func (c *Coordinator) Store(ctx context.Context, key string, asset *imaging.Asset) {
	data, err := imaging.Encode(asset)
	cost := int64(1)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "asset_encode_failed",
			"key":    key,
			"error":  err.Error(),
		}).Warn("asset_encode_failed")
		data = nil
	} else {
		cost = int64(len(data))
	}

	c.memory.Put(key, asset, cost)
	c.tracker.Add(cost)

	if data == nil {
		return
	}
	if err := c.disk.Write(ctx, key, data); err != nil {
		c.logger.WithFields(logrus.Fields{
			"action": "cache_disk_write_failed",
			"key":    key,
			"error":  err.Error(),
		}).Warn("disk_write_failed")
	}
}

// Evict 将键从两级缓存中删除，内存侧照常产生淘汰通知。磁盘层不可用
// 时等同于磁盘上本无此条目。
func (c *Coordinator) Evict(ctx context.Context, key string) error {
	c.memory.Remove(key)
	err := c.disk.Remove(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrNotFound) && !errors.Is(err, cache.ErrStoreUnavailable) {
		return err
	}
	return nil
}

// PurgeMemory 清空内存层并返回清除的条目数，磁盘条目保持可寻址。
func (c *Coordinator) PurgeMemory() int {
	n := c.memory.Len()
	c.memory.Purge()
	return n
}

// MemoryUsage 返回 Tracker 记录的驻留字节数。
func (c *Coordinator) MemoryUsage() int64 {
	return c.tracker.Current()
}

// ResidentCost 返回内存层当前驻留成本。
func (c *Coordinator) ResidentCost() int64 {
	return c.memory.Cost()
}

// ResidentEntries 返回内存层当前条目数。
func (c *Coordinator) ResidentEntries() int {
	return c.memory.Len()
}

// CostLimit 返回内存层成本上限。
func (c *Coordinator) CostLimit() int64 {
	return c.memory.Limit()
}

// DiskUsage 尽力统计磁盘层占用字节数。
func (c *Coordinator) DiskUsage(ctx context.Context) (int64, error) {
	return c.disk.Usage(ctx)
}

// Wait 阻塞到内存层所有待派发的淘汰通知送达完毕。
func (c *Coordinator) Wait() {
	c.memory.Wait()
}

// Close 排空淘汰通知队列并停止内存层。
func (c *Coordinator) Close() {
	c.memory.Close()
}
