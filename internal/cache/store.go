package cache

import (
	"context"
	"errors"
)

// Store 负责管理磁盘层的读写。磁盘布局为拍平的单层目录：
//
//	<StoragePath>/<encoded-key>.img
//
// 文件名由键经百分号编码得到（仅字母数字原样保留），编码结果超过
// 文件系统限长时退化为随机文件名，此类条目之后无法按键寻址。
type Store interface {
	// Read 返回键对应的缓存字节。条目不存在时返回 ErrNotFound。
	Read(ctx context.Context, key string) ([]byte, error)

	// Write 将字节写入键对应的文件。实现需通过临时文件 + rename
	// 保证写入原子性，并在失败时清理临时文件。
	Write(ctx context.Context, key string, data []byte) error

	// Remove 删除键对应的文件，文件不存在时视为成功。
	Remove(ctx context.Context, key string) error

	// Usage 尽力统计磁盘占用总字节数，无法读取的条目按 0 计。
	Usage(ctx context.Context) (int64, error)
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
