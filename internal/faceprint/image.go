package faceprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// imageSource adapts a decoded image.Image to the ImageSource interface.
type imageSource struct {
	img image.Image
}

// NewImageSource wraps a decoded image for feature extraction.
func NewImageSource(img image.Image) ImageSource {
	return &imageSource{img: img}
}

// Decode parses encoded image bytes (JPEG, PNG, GIF or BMP) into an
// ImageSource.
func Decode(imageData []byte) (ImageSource, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &imageSource{img: img}, nil
}

func (s *imageSource) Bounds() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *imageSource) Resize(width, height int) ImageSource {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), s.img, s.img.Bounds(), draw.Over, nil)
	return &imageSource{img: dst}
}

func (s *imageSource) LuminanceAt(x, y int) float64 {
	b := s.img.Bounds()
	r, g, bl, _ := s.img.At(b.Min.X+x, b.Min.Y+y).RGBA()
	// ITU-R BT.601 luma formula.
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
}
