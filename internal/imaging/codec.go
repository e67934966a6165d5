package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	// webp 仅提供解码器，通过 init 注册到 image 包。
	_ "golang.org/x/image/webp"
)

// Decode 解析编码字节并保留原始数据，格式由 image 包的注册表识别
// （png/jpeg/gif 以及 bmp/tiff/webp）。
func Decode(data []byte) (*Asset, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return &Asset{Image: img, Format: format, data: data}, nil
}

// Encode 返回资产的编码字节。携带原始字节时原样返回，保证
// 解码再编码得到逐字节相同的结果；否则按 Format 重新编码。
func Encode(asset *Asset) ([]byte, error) {
	if asset == nil {
		return nil, fmt.Errorf("nil asset")
	}
	if asset.data != nil {
		return asset.data, nil
	}
	if asset.Image == nil {
		return nil, fmt.Errorf("asset has no pixel data")
	}

	var buf bytes.Buffer
	switch asset.Format {
	case "png":
		if err := png.Encode(&buf, asset.Image); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(&buf, asset.Image, nil); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case "gif":
		if err := gif.Encode(&buf, asset.Image, nil); err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
	case "bmp":
		if err := bmp.Encode(&buf, asset.Image); err != nil {
			return nil, fmt.Errorf("encode bmp: %w", err)
		}
	case "tiff":
		if err := tiff.Encode(&buf, asset.Image, nil); err != nil {
			return nil, fmt.Errorf("encode tiff: %w", err)
		}
	default:
		return nil, fmt.Errorf("no encoder for format %q", asset.Format)
	}
	return buf.Bytes(), nil
}
