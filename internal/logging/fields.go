package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供资源请求日志的公共字段，供 HTTP 入口复用。
func RequestFields(url, state string, status int) logrus.Fields {
	return logrus.Fields{
		"url":    url,
		"state":  state,
		"status": status,
	}
}
