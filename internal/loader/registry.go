package loader

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/img-hub/img-hub/internal/fetch"
)

// RegistryOptions 描述注册表的依赖。Validator 为 nil 时放行所有键。
type RegistryOptions struct {
	Cache     AssetCache
	Fetcher   fetch.Fetcher
	Validator fetch.Validator
	Logger    *logrus.Logger
}

// Registry 按键复用 Loader。构造与注册在同一把锁内完成，确保并发
// 请求同一个键拿到的是同一个实例，从而每个键最多一次在途回源。
// 条目作为该键的终态备忘一直保留，进程生命周期内不会自动清除。
type Registry struct {
	cache     AssetCache
	fetcher   fetch.Fetcher
	validator fetch.Validator
	logger    *logrus.Logger

	mu      sync.Mutex
	loaders map[string]*Loader
}

// NewRegistry 构造注册表。
func NewRegistry(opts RegistryOptions) (*Registry, error) {
	if opts.Cache == nil {
		return nil, errors.New("asset cache required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Registry{
		cache:     opts.Cache,
		fetcher:   opts.Fetcher,
		validator: opts.Validator,
		logger:    logger,
	}, nil
}

// Get 返回键对应的共享 Loader，首次访问时创建并启动加载。校验失败
// 的键同样注册（作为拒绝备忘），但不会触碰缓存或网络。
func (r *Registry) Get(key string) *Loader {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loaders[key]; ok {
		return l
	}

	rejected := false
	if r.validator != nil {
		if err := r.validator.Validate(key); err != nil {
			rejected = true
			r.logger.WithFields(logrus.Fields{
				"action": "key_rejected",
				"key":    key,
				"error":  err.Error(),
			}).Warn("key_validation_rejected")
		}
	}

	l := newLoader(key, rejected, r.cache, r.fetcher, r.logger)
	if r.loaders == nil {
		r.loaders = make(map[string]*Loader)
	}
	r.loaders[key] = l
	if !rejected {
		go l.run()
	}
	return l
}

// Peek 返回已注册的 Loader，不触发创建。
func (r *Registry) Peek(key string) (*Loader, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.loaders[key]
	return l, ok
}

// Drop 移除处于终态或被拒绝的条目，供运维清理后重新加载。仍在
// 加载中的条目不可移除，否则同键可能出现两次在途回源。
func (r *Registry) Drop(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.loaders[key]
	if !ok {
		return false
	}
	if !l.rejected && l.Current().State == StateEmpty {
		return false
	}
	delete(r.loaders, key)
	return true
}

// Size 返回注册表中的条目数。
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loaders)
}
