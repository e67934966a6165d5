package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrTooLarge 表示上游正文超过 MaxAssetSize，条目不会被缓存。
var ErrTooLarge = errors.New("asset exceeds size limit")

// Fetcher 获取键（源 URL）对应的原始字节。实现必须在返回前读完
// 整个正文；调用方拿到的要么是完整字节，要么是错误。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options 描述 HTTP 取数器的重试与限额参数。
type Options struct {
	Client         *http.Client
	Logger         *logrus.Logger
	MaxAssetSize   int64
	MaxRetries     int
	InitialBackoff time.Duration
}

// HTTPFetcher 通过共享 http.Client 回源，对可重试失败（网络错误、
// 5xx、429）按指数退避重试；4xx 与超限直接失败。
type HTTPFetcher struct {
	client         *http.Client
	logger         *logrus.Logger
	maxBytes       int64
	maxRetries     int
	initialBackoff time.Duration
}

// NewHTTPFetcher 构造 HTTPFetcher，未设置的参数回退到保守默认值。
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	backoff := opts.InitialBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBytes := opts.MaxAssetSize
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}

	return &HTTPFetcher{
		client:         client,
		logger:         logger,
		maxBytes:       maxBytes,
		maxRetries:     retries,
		initialBackoff: backoff,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	backoff := f.initialBackoff

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			f.logger.WithFields(logrus.Fields{
				"action":  "fetch_retry",
				"url":     rawURL,
				"attempt": attempt,
				"error":   lastErr.Error(),
			}).Warn("fetch_retrying")

			if err := sleepContext(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}

		data, retryable, err := f.fetchOnce(ctx, rawURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, lastErr
}

// fetchOnce 执行单次回源，返回值第二项标记该错误是否值得重试。
func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("upstream status %d for %s", resp.StatusCode, rawURL)
		return nil, isRetryableStatus(resp.StatusCode), err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, false, fmt.Errorf("%w: %s", ErrTooLarge, rawURL)
	}
	return data, false, nil
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
