package fetch

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validator 决定一个键是否允许发起加载。校验失败的键不会触碰
// 缓存或网络，状态停留在初始态。
type Validator interface {
	Validate(rawURL string) error
}

// URLValidator 校验键是合法的 http/https URL，可选地限定源主机。
type URLValidator struct {
	allowedHosts map[string]struct{}
}

// NewURLValidator 构造校验器。allowedHosts 为空表示放行所有主机，
// 条目携带端口时按主机名比对。
func NewURLValidator(allowedHosts []string) *URLValidator {
	v := &URLValidator{}
	if len(allowedHosts) > 0 {
		v.allowedHosts = make(map[string]struct{}, len(allowedHosts))
		for _, host := range allowedHosts {
			host = strings.ToLower(strings.TrimSpace(host))
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if host != "" {
				v.allowedHosts[host] = struct{}{}
			}
		}
	}
	return v
}

func (v *URLValidator) Validate(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return errors.New("url required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("url host required")
	}

	if v.allowedHosts != nil {
		host := strings.ToLower(parsed.Hostname())
		if _, ok := v.allowedHosts[host]; !ok {
			return fmt.Errorf("host %q not allowed", host)
		}
	}
	return nil
}
