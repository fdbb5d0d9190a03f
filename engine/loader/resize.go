package loader

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// Resize rescales a decoded texture to width x height with Catmull-Rom filtering.
// The texture is returned unchanged when it already has the requested size.
//
// Parameters:
//   - tex: the decoded texture
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - *common.ImportedTexture: a texture with the target dimensions
func Resize(tex *common.ImportedTexture, width, height int) *common.ImportedTexture {
	if tex == nil || (tex.Width == width && tex.Height == height) {
		return tex
	}

	src := &image.RGBA{
		Pix:    tex.Pixels,
		Stride: tex.Width * 4,
		Rect:   image.Rect(0, 0, tex.Width, tex.Height),
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)

	out := *tex
	out.Width = width
	out.Height = height
	out.Pixels = dst.Pix
	out.Data = nil
	return &out
}
