package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器（CDN 偶尔返回 png，扩展名却还是 jpg）
)

// NormalizeJPEG 把下载到的海报字节解码后统一编码为 JPEG。
//
// 直接把响应 body 原样落成 .jpg 有两个问题：内容可能根本不是图片
// （反爬返回的 HTML 错误页），也可能是 PNG。这里统一做一次
// 解码 + 重编码，保证 posters/ 下的每个 .jpg 名副其实。
//
// 约束：
// - 输入允许是 JPEG/PNG（依赖标准库解码器）
// - 输出固定为 JPEG
func NormalizeJPEG(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("海报数据为空")
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	var out bytes.Buffer
	// 质量：不需要太“讲究”，但要稳定可用；95 在体积与质量之间比较均衡。
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
