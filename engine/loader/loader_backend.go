package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// LoaderBackendType identifies the texture container family a backend reads.
type LoaderBackendType int

const (
	// BackendTypeImage selects the decoder registry of the image package (PNG, JPEG, GIF, BMP, TIFF, WebP).
	BackendTypeImage LoaderBackendType = iota

	// BackendTypeKTX selects the KTX 1.1 container reader for uncompressed textures.
	BackendTypeKTX
)

// loaderBackend defines the generic interface for loading textures from files or streams.
// Concrete implementations handle format-specific details and always return RGBA8 pixels.
type loaderBackend interface {
	// Load imports a texture from the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *common.ImportedTexture: the decoded texture
	//   - error: error if loading fails
	Load(path string) (*common.ImportedTexture, error)

	// LoadReader imports a texture from a reader stream.
	//
	// Parameters:
	//   - name: the name recorded on the texture
	//   - r: the reader providing encoded data
	//
	// Returns:
	//   - *common.ImportedTexture: the decoded texture
	//   - error: error if loading fails
	LoadReader(name string, r io.Reader) (*common.ImportedTexture, error)
}
