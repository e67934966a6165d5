package cache

import (
	"context"
	"errors"
)

// ErrStoreUnavailable 表示磁盘存储未能初始化，所有操作都会失败。
var ErrStoreUnavailable = errors.New("cache store unavailable")

// Unavailable 返回一个始终失败的 Store。磁盘目录无法创建时进程
// 以纯内存模式继续运行，上层把每次磁盘失败当作普通降级处理。
func Unavailable() Store {
	return unavailableStore{}
}

type unavailableStore struct{}

func (unavailableStore) Read(context.Context, string) ([]byte, error) {
	return nil, ErrStoreUnavailable
}

func (unavailableStore) Write(context.Context, string, []byte) error {
	return ErrStoreUnavailable
}

func (unavailableStore) Remove(context.Context, string) error {
	return ErrStoreUnavailable
}

func (unavailableStore) Usage(context.Context) (int64, error) {
	return 0, ErrStoreUnavailable
}
