package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/spaghettifunk/glacier/engine/core"
	"github.com/spaghettifunk/glacier/engine/resource"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureLoader decodes an image file into a single RGBA8 layer.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string) (any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return DecodeTexture(file, resource.TextureSampleOnly)
}

// DecodeTexture decodes any registered image format. Pixels are converted
// to tightly packed RGBA8, rows top to bottom.
func DecodeTexture(r io.Reader, usage resource.ImageUsage) (*resource.TextureCreationData, error) {
	img, codec, err := image.Decode(r)
	if err != nil {
		return nil, core.Wrap(core.KindUser, err, "failed to decode texture")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, core.UserError("%s texture has no pixels", codec)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	core.LogDebug("decoded %s texture %dx%d", codec, bounds.Dx(), bounds.Dy())

	return &resource.TextureCreationData{
		LayerData: [][]byte{rgba.Pix},
		Width:     uint32(bounds.Dx()),
		Height:    uint32(bounds.Dy()),
		Format:    resource.PixelFormatRgba,
		Usage:     usage,
	}, nil
}
