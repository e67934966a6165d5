package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfigFile 将 TOML 内容写入临时目录，返回配置文件路径。
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte(strings.TrimSpace(content)), 0o600); err != nil {
		t.Fatalf("写入配置失败: %v", err)
	}
	return file
}

// validConfigFile 生成一份可通过校验的最小配置。
func validConfigFile(t *testing.T) string {
	t.Helper()
	return writeConfigFile(t, fmt.Sprintf(`
LogLevel = "info"
StoragePath = "%s"
`, filepath.Join(t.TempDir(), "storage")))
}
