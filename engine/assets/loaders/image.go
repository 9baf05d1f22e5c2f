package loaders

import (
	"image"
	"image/draw"
	"os"

	// Decoders register themselves with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vkpresent/engine/core"
)

// ImageData is a decoded image as tightly packed 8-bit RGBA rows.
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

type ImageLoader struct{}

// Load opens and decodes the image at path and converts it to RGBA8.
func (il ImageLoader) Load(path string) (*ImageData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open image %q", path), core.ErrImageDecode)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decode image %q", path), core.ErrImageDecode)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, errors.Mark(errors.Newf("image %q has no pixels", path), core.ErrImageDecode)
	}
	core.LogDebug("Decoded %s image '%s' (%dx%d).", format, path, bounds.Dx(), bounds.Dy())

	return FromImage(img), nil
}

// FromImage converts any image to tightly packed, non-premultiplied RGBA8
// with the origin at the top left.
func FromImage(img image.Image) *ImageData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.NRGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &ImageData{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Pixels: rgba.Pix[:4*bounds.Dx()*bounds.Dy()],
	}
}
