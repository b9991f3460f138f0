package image

import (
	"bytes"
	"fmt"
	"image/gif"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"
)

// Optimizer compresses one image. Salt identifies the codec settings so a
// settings change invalidates cached results.
type Optimizer interface {
	Optimize(name string, data []byte) (out []byte, codec string, err error)
	Salt() string
}

// Codecs is the default Optimizer. It re-encodes raster formats with the
// standard library encoders and minifies SVG.
type Codecs struct {
	JPEGQuality int
	svg         *minify.M
}

// NewCodecs creates the default codec chain.
func NewCodecs(jpegQuality int) *Codecs {
	m := minify.New()
	m.AddFunc("image/svg+xml", svg.Minify)
	return &Codecs{JPEGQuality: jpegQuality, svg: m}
}

func (c *Codecs) Salt() string {
	return fmt.Sprintf("png=best;jpeg=q%d;gif=all;svg=min", c.JPEGQuality)
}

func (c *Codecs) Optimize(name string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".png":
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "png", err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, "png", err
		}
		return buf.Bytes(), "png", nil

	case ".jpg", ".jpeg":
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, "jpeg", err
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.JPEGQuality}); err != nil {
			return nil, "jpeg", err
		}
		return buf.Bytes(), "jpeg", nil

	case ".gif":
		anim, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return nil, "gif", err
		}
		if err := gif.EncodeAll(&buf, anim); err != nil {
			return nil, "gif", err
		}
		return buf.Bytes(), "gif", nil

	case ".svg":
		if err := c.svg.Minify("image/svg+xml", &buf, bytes.NewReader(data)); err != nil {
			return nil, "svg", err
		}
		return buf.Bytes(), "svg", nil

	default:
		return nil, "", fmt.Errorf("no codec for extension %q", ext)
	}
}
