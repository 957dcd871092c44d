package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// maxImageSide bounds the long side of images sent to Gemini.
	maxImageSide = 1600
	// maxImagePixels bounds the declared area of an upload, checked from
	// the header before any pixel is decoded.
	maxImagePixels = 40_000_000
)

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// passthroughMIME lists formats Gemini accepts as uploaded.
var passthroughMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// prepareImage checks that data decodes as an image and returns bytes
// ready for Gemini. Large images are scaled down and formats Gemini does
// not take directly are converted, both to PNG.
func prepareImage(data []byte, mimeType string) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image header: %w", err)
	}
	if "image/"+format != mimeType {
		return nil, "", fmt.Errorf("content is %s, declared %s", format, mimeType)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, "", fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, maxImagePixels)
	}

	if passthroughMIME[mimeType] && cfg.Width <= maxImageSide && cfg.Height <= maxImageSide {
		return data, mimeType, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	dst := image.Image(src)
	if w, h := fitSize(cfg.Width, cfg.Height, maxImageSide); w != cfg.Width || h != cfg.Height {
		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), xdraw.Over, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, "", fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), "image/png", nil
}

// fitSize scales w×h down, keeping the aspect ratio, so neither side
// exceeds limit.
func fitSize(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}
