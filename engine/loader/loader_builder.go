package loader

import (
	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithUploader is an option builder that sets the GPU uploader used by Loader.Upload.
//
// Parameters:
//   - u: the uploader, usually the renderer
//
// Returns:
//   - LoaderBuilderOption: a function that applies the uploader option to a loader
func WithUploader(u TextureUploader) LoaderBuilderOption {
	return func(l *loader) {
		l.uploader = u
	}
}

// WithTargetSize is an option builder that resizes every loaded texture to width x height.
//
// Parameters:
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the target size option to a loader
func WithTargetSize(width, height int) LoaderBuilderOption {
	return func(l *loader) {
		l.targetWidth = width
		l.targetHeight = height
	}
}

// WithTexture is an option builder that pre-populates the texture cache.
//
// Parameters:
//   - key: the cache key for the texture
//   - tex: the texture to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the texture option to a loader
func WithTexture(key string, tex *common.ImportedTexture) LoaderBuilderOption {
	return func(l *loader) {
		l.textureCache[key] = tex
	}
}
