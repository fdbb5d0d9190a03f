package loader

import "fmt"

// AssetLoadError reports an asset that is missing, unreadable, or not a supported image.
type AssetLoadError struct {
	// Path is the file path or reader name of the asset.
	Path string

	// Err is the underlying failure.
	Err error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("load asset %s: %v", e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}
