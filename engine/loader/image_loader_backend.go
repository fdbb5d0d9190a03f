package loader

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// imageLoaderBackend decodes anything registered with the image package. PNG, JPEG and GIF
// are registered by common; BMP, TIFF and WebP by the imports above.
type imageLoaderBackend struct{}

var _ loaderBackend = &imageLoaderBackend{}

func newImageLoaderBackend() loaderBackend {
	return &imageLoaderBackend{}
}

func (b *imageLoaderBackend) Load(path string) (*common.ImportedTexture, error) {
	tex := &common.ImportedTexture{
		Name:     filepath.Base(path),
		Path:     path,
		MimeType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
	}
	if _, _, _, err := tex.Decode(); err != nil {
		return nil, err
	}
	return tex, nil
}

func (b *imageLoaderBackend) LoadReader(name string, r io.Reader) (*common.ImportedTexture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	tex := &common.ImportedTexture{
		Name: name,
		Data: data,
	}
	if _, _, _, err := tex.Decode(); err != nil {
		return nil, err
	}
	return tex, nil
}
