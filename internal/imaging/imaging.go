// Package imaging recompresses captured photos to a bounded size.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels is the decode budget used when Options.MaxPixels is
// unset.
const DefaultMaxPixels = 50_000_000

// ErrTooLarge is returned for images whose header declares more pixels
// than the decode budget allows. Nothing is decoded in that case.
var ErrTooLarge = errors.New("image exceeds pixel budget")

type Options struct {
	// MaxDimension bounds the longer edge, in pixels.
	MaxDimension int
	// Quality is the JPEG quality factor, 1-100.
	Quality int
	// MaxPixels bounds width*height of the source image.
	MaxPixels int64
}

func DefaultOptions() Options {
	return Options{MaxDimension: 1280, Quality: 70, MaxPixels: DefaultMaxPixels}
}

// Result is a compressed JPEG and its final dimensions.
type Result struct {
	Data   []byte
	Width  int
	Height int
}

func CompressFile(path string, opts Options) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return Compress(f, opts)
}

// Compress decodes any registered format, downsamples so neither edge
// exceeds MaxDimension and re-encodes as JPEG. The header is checked
// against MaxPixels before any pixel data is decoded.
func Compress(r io.Reader, opts Options) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode image header: %w", err)
	}
	budget := opts.MaxPixels
	if budget <= 0 {
		budget = DefaultMaxPixels
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > budget {
		return Result{}, fmt.Errorf("%s %dx%d: %w", format, cfg.Width, cfg.Height, ErrTooLarge)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	img := src
	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), opts.MaxDimension)
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		img = dst
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Result{}, fmt.Errorf("encode %s as jpeg: %w", format, err)
	}
	return Result{Data: buf.Bytes(), Width: w, Height: h}, nil
}

// fit scales w x h down so the longer edge is at most max, keeping the
// aspect ratio. Images already within bounds are left alone.
func fit(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
