package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/fetch"
	"github.com/img-hub/img-hub/internal/imaging"
)

// ErrRejected 表示键未通过校验，加载器永远停留在初始态。
var ErrRejected = errors.New("key rejected by validation")

// State 是加载器的生命周期状态。Loaded 与 Failed 为终态，进入后
// 不再变化，也不会自动重试。
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Snapshot 是加载器对外暴露的值单元：当前资产与状态。
type Snapshot struct {
	Asset *imaging.Asset
	State State
}

// AssetCache 是加载器依赖的缓存能力，由两级协调器实现。
type AssetCache interface {
	Lookup(ctx context.Context, key string) (*imaging.Asset, bool)
	Store(ctx context.Context, key string, asset *imaging.Asset)
}

// Loader 负责单个键的加载：先查缓存，未命中则回源一次，结果写入
// 缓存后进入终态。同一个 Loader 实例被所有等待者共享，保证每个键
// 最多只有一次在途回源。
type Loader struct {
	key      string
	rejected bool

	cache   AssetCache
	fetcher fetch.Fetcher
	logger  *logrus.Logger

	mu    sync.Mutex
	state State
	asset *imaging.Asset

	done chan struct{}
}

// newLoader 构造加载器；rejected 为真时不会启动任何加载动作。
func newLoader(key string, rejected bool, cache AssetCache, fetcher fetch.Fetcher, logger *logrus.Logger) *Loader {
	return &Loader{
		key:      key,
		rejected: rejected,
		cache:    cache,
		fetcher:  fetcher,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Key 返回加载器对应的键。
func (l *Loader) Key() string {
	return l.key
}

// Rejected 报告键是否在构造时被校验拒绝。
func (l *Loader) Rejected() bool {
	return l.rejected
}

// Current 返回当前值单元快照，任何时刻可调用。
func (l *Loader) Current() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{Asset: l.asset, State: l.state}
}

// Done 返回进入终态时关闭的通道，供订阅者等待一次性转变。
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Await 阻塞到加载器进入终态或 ctx 到期。被校验拒绝的键立即返回
// ErrRejected；ctx 到期只是放弃等待，后台加载继续进行。
func (l *Loader) Await(ctx context.Context) (Snapshot, error) {
	if l.rejected {
		return l.Current(), ErrRejected
	}
	select {
	case <-l.done:
		return l.Current(), nil
	case <-ctx.Done():
		return l.Current(), ctx.Err()
	}
}

// run 执行一次完整加载流程。后台使用独立 context，请求方放弃等待
// 不会中断加载，后来的请求直接拿到结果。
func (l *Loader) run() {
	started := time.Now()
	ctx := context.Background()

	if asset, ok := l.cache.Lookup(ctx, l.key); ok {
		l.complete(asset, StateLoaded)
		l.logLoad(true, asset, started, nil)
		return
	}

	data, err := l.fetcher.Fetch(ctx, l.key)
	if err != nil {
		l.complete(nil, StateFailed)
		l.logLoad(false, nil, started, err)
		return
	}

	asset, err := imaging.Decode(data)
	if err != nil {
		l.complete(nil, StateFailed)
		l.logLoad(false, nil, started, err)
		return
	}

	l.cache.Store(ctx, l.key, asset)
	l.complete(asset, StateLoaded)
	l.logLoad(false, asset, started, nil)
}

// complete 执行唯一一次终态转变并唤醒所有订阅者。
func (l *Loader) complete(asset *imaging.Asset, state State) {
	l.mu.Lock()
	if l.state != StateEmpty {
		l.mu.Unlock()
		return
	}
	l.asset = asset
	l.state = state
	l.mu.Unlock()
	close(l.done)
}

func (l *Loader) logLoad(cacheHit bool, asset *imaging.Asset, started time.Time, err error) {
	fields := logrus.Fields{
		"action":     "asset_load",
		"key":        l.key,
		"cache_hit":  cacheHit,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}
	if asset != nil {
		fields["size_bytes"] = asset.EncodedSize()
		fields["format"] = asset.Format
	}
	if err != nil {
		fields["error"] = err.Error()
		l.logger.WithFields(fields).Error("asset_load_failed")
		return
	}
	l.logger.WithFields(fields).Info("asset_load_complete")
}
