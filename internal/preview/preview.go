// Package preview turns an uploaded image into a data URI for local display.
package preview

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

// maxPixels bounds the images DataURI will fully decode. A small file can
// declare dimensions whose pixel buffer runs to gigabytes.
var maxPixels int64 = 50_000_000

// DataURI encodes data for an <img src>. Images whose longer side exceeds
// maxSide are downscaled and re-encoded as JPEG. Anything that cannot be
// decoded, or whose header declares more than maxPixels pixels, is passed
// through with its sniffed MIME type.
func DataURI(data []byte, maxSide uint) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty image")
	}

	mime, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")

	if maxSide > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err == nil && oversized(cfg, maxSide) && int64(cfg.Width)*int64(cfg.Height) <= maxPixels {
			img, _, err := image.Decode(bytes.NewReader(data))
			if err == nil {
				return downscale(img, maxSide)
			}
		}
	}

	return encode(mime, data), nil
}

func oversized(cfg image.Config, maxSide uint) bool {
	return uint(cfg.Width) > maxSide || uint(cfg.Height) > maxSide
}

func downscale(img image.Image, maxSide uint) (string, error) {
	b := img.Bounds()
	var w, h uint
	if b.Dx() >= b.Dy() {
		w = maxSide
	} else {
		h = maxSide
	}
	thumb := resize.Resize(w, h, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return encode("image/jpeg", buf.Bytes()), nil
}

func encode(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
