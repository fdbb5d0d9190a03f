package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/bind_group_provider"
)

// TextureUploader creates GPU textures and samplers on a bind group provider.
// The renderer satisfies it.
type TextureUploader interface {
	InitTextureView(provider bind_group_provider.BindGroupProvider, bindingKey int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, bindingKey int, samplerStagingData common.SamplerStagingData) error
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	uploader TextureUploader

	textureCache map[string]*common.ImportedTexture

	backends map[LoaderBackendType]loaderBackend

	targetWidth  int
	targetHeight int
}

// Loader loads source images from disk or streams, normalizes them to RGBA8 at an optional
// target size, and caches the result by path or name.
type Loader interface {
	// Load imports a texture file and caches the result.
	// If the texture is already cached (by file path), the cached version is returned.
	// The backend is selected from the file extension (.ktx selects the KTX backend,
	// anything else the image backend).
	//
	// Parameters:
	//   - path: the file path to the texture
	//
	// Returns:
	//   - *common.ImportedTexture: the decoded texture
	//   - error: an *AssetLoadError if the file is missing or cannot be decoded
	Load(path string) (*common.ImportedTexture, error)

	// LoadReader imports a texture from a reader and caches it by the given name.
	// KTX data is detected by its identifier, everything else goes through the image backend.
	//
	// Parameters:
	//   - name: the cache key for the loaded texture
	//   - r: the reader providing encoded image data
	//
	// Returns:
	//   - *common.ImportedTexture: the decoded texture
	//   - error: an *AssetLoadError if the data cannot be decoded
	LoadReader(name string, r io.Reader) (*common.ImportedTexture, error)

	// Upload creates the GPU texture and sampler for tex on provider.
	// The texture's SamplerData is used when set, otherwise linear clamp-to-edge sampling.
	//
	// Parameters:
	//   - tex: the decoded texture
	//   - provider: the bind group provider receiving the texture view and sampler
	//   - textureBinding: the binding index of the texture
	//   - samplerBinding: the binding index of the sampler, or -1 to skip sampler creation
	//
	// Returns:
	//   - error: error if no uploader is configured or GPU resource creation fails
	Upload(tex *common.ImportedTexture, provider bind_group_provider.BindGroupProvider, textureBinding, samplerBinding int) error
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with both the image and KTX backends registered.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided options
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:           sync.RWMutex{},
		textureCache: make(map[string]*common.ImportedTexture),
		backends: map[LoaderBackendType]loaderBackend{
			BackendTypeImage: newImageLoaderBackend(),
			BackendTypeKTX:   newKTXLoaderBackend(),
		},
	}

	for _, option := range options {
		option(l)
	}
	return l
}

func (l *loader) Load(path string) (*common.ImportedTexture, error) {
	l.mu.RLock()
	if cached, ok := l.textureCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	if _, err := os.Stat(path); err != nil {
		return nil, &AssetLoadError{Path: path, Err: err}
	}

	tex, err := l.backends[backendTypeForPath(path)].Load(path)
	if err != nil {
		return nil, &AssetLoadError{Path: path, Err: err}
	}
	tex = l.normalize(tex)

	common.Logger().Debug("loaded texture", "path", path, "width", tex.Width, "height", tex.Height, "mime", tex.MimeType)

	l.mu.Lock()
	l.textureCache[path] = tex
	l.mu.Unlock()
	return tex, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (*common.ImportedTexture, error) {
	br := bufio.NewReader(r)
	backendType := BackendTypeImage
	if head, _ := br.Peek(len(ktxIdentifier)); sniffKTX(head) {
		backendType = BackendTypeKTX
	}

	tex, err := l.backends[backendType].LoadReader(name, br)
	if err != nil {
		return nil, &AssetLoadError{Path: name, Err: err}
	}
	tex = l.normalize(tex)

	l.mu.Lock()
	l.textureCache[name] = tex
	l.mu.Unlock()
	return tex, nil
}

func (l *loader) Upload(tex *common.ImportedTexture, provider bind_group_provider.BindGroupProvider, textureBinding, samplerBinding int) error {
	if l.uploader == nil {
		return fmt.Errorf("loader has no texture uploader")
	}
	if tex == nil || len(tex.Pixels) == 0 {
		return fmt.Errorf("texture has no decoded pixels")
	}

	if err := l.uploader.InitTextureView(provider, textureBinding, tex.StagingData()); err != nil {
		return fmt.Errorf("upload texture %s: %w", tex.Name, err)
	}
	if samplerBinding < 0 {
		return nil
	}
	sampler := common.LinearClampSampler()
	if tex.SamplerData != nil {
		sampler = *tex.SamplerData
	}
	if err := l.uploader.InitSampler(provider, samplerBinding, sampler); err != nil {
		return fmt.Errorf("create sampler for %s: %w", tex.Name, err)
	}
	return nil
}

// normalize resizes tex to the configured target size, if any.
func (l *loader) normalize(tex *common.ImportedTexture) *common.ImportedTexture {
	if l.targetWidth <= 0 || l.targetHeight <= 0 {
		return tex
	}
	if tex.Width != l.targetWidth || tex.Height != l.targetHeight {
		common.Logger().Info("resizing texture", "name", tex.Name,
			"from", fmt.Sprintf("%dx%d", tex.Width, tex.Height),
			"to", fmt.Sprintf("%dx%d", l.targetWidth, l.targetHeight))
	}
	return Resize(tex, l.targetWidth, l.targetHeight)
}

func backendTypeForPath(path string) LoaderBackendType {
	if strings.EqualFold(filepath.Ext(path), ".ktx") {
		return BackendTypeKTX
	}
	return BackendTypeImage
}
