package imaging

import "image"

// Asset 是一次成功解码的图像：像素数据、容器格式名以及（若来源于
// 网络或磁盘）原始编码字节。缓存成本按编码字节长度计。
type Asset struct {
	Image  image.Image
	Format string

	data []byte
}

// NewAsset 构建不携带原始字节的 Asset，Encode 时将按 Format 重新编码。
func NewAsset(img image.Image, format string) *Asset {
	return &Asset{Image: img, Format: format}
}

// EncodedSize 返回原始编码字节长度，无原始字节时为 0。
func (a *Asset) EncodedSize() int64 {
	return int64(len(a.data))
}

// ContentType 返回适合 HTTP 响应的 MIME 类型。
func (a *Asset) ContentType() string {
	if a.Format == "" {
		return "application/octet-stream"
	}
	return "image/" + a.Format
}
