package usage

import "sync"

// Tracker 以字节为单位统计内存缓存当前驻留量。所有变更串行执行，
// 并发调用不会交错，读取总能看到完整的一致快照。
type Tracker struct {
	mu    sync.Mutex
	total int64
}

// NewTracker 返回计数为零的 Tracker。
func NewTracker() *Tracker {
	return &Tracker{}
}

// Add 记录新增 n 字节驻留。
func (t *Tracker) Add(n int64) {
	t.mu.Lock()
	t.total += n
	t.mu.Unlock()
}

// Subtract 记录释放 n 字节驻留，通常由淘汰回调触发。
func (t *Tracker) Subtract(n int64) {
	t.mu.Lock()
	t.total -= n
	t.mu.Unlock()
}

// Current 返回当前驻留字节数。
func (t *Tracker) Current() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
