package config

import (
	"errors"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := &c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.MaxMemoryCache <= 0 {
		return newFieldError("Global.MaxMemoryCacheSize", "必须大于 0")
	}
	if g.MaxAssetSize <= 0 {
		return newFieldError("Global.MaxAssetSize", "必须大于 0")
	}
	if g.MaxRetries < 0 {
		return newFieldError("Global.MaxRetries", "不能为负数")
	}
	if g.InitialBackoff.DurationValue() <= 0 {
		return newFieldError("Global.InitialBackoff", "必须大于 0")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.RequestWaitTimeout.DurationValue() <= 0 {
		return newFieldError("Global.RequestWaitTimeout", "必须大于 0")
	}

	for i, host := range g.AllowedHosts {
		normalized, err := validateAllowedHost(host)
		if err != nil {
			return newFieldError(hostField(i), err.Error())
		}
		g.AllowedHosts[i] = normalized
	}

	return nil
}

// validateAllowedHost 校验并归一化主机白名单条目：仅接受裸主机名。
func validateAllowedHost(host string) (string, error) {
	trimmed := strings.TrimSpace(host)
	if trimmed == "" {
		return "", errors.New("不能为空")
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return "", errors.New("不应包含协议头")
	}
	if strings.Contains(trimmed, "/") {
		return "", errors.New("不允许包含路径")
	}
	if strings.Contains(trimmed, " ") {
		return "", errors.New("不允许包含空格")
	}
	return strings.ToLower(trimmed), nil
}
