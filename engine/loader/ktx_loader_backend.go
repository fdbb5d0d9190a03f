package loader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// ktxIdentifier opens every KTX 1.1 file.
var ktxIdentifier = [12]byte{0xAB, 'K', 'T', 'X', ' ', '1', '1', 0xBB, '\r', '\n', 0x1A, '\n'}

const (
	ktxEndianness = 0x04030201

	glUnsignedByte = 0x1401
	glRed          = 0x1903
	glRGB          = 0x1907
	glRGBA         = 0x1908
	glLuminance    = 0x1909

	// maxKTXDimension bounds the width and height taken from a header before allocating.
	maxKTXDimension = 16384
)

// ErrUnsupportedKTX is returned for KTX files that are compressed, arrays, cubemaps, or 3D.
var ErrUnsupportedKTX = errors.New("unsupported KTX texture")

// ErrKTXImageSize is returned when the declared image size does not match the header.
var ErrKTXImageSize = errors.New("KTX image size does not match the header")

// ktxHeader mirrors the thirteen 32-bit fields that follow the identifier and endianness marker.
type ktxHeader struct {
	GLType                uint32
	GLTypeSize            uint32
	GLFormat              uint32
	GLInternalFormat      uint32
	GLBaseInternalFormat  uint32
	PixelWidth            uint32
	PixelHeight           uint32
	PixelDepth            uint32
	NumberOfArrayElements uint32
	NumberOfFaces         uint32
	NumberOfMipmapLevels  uint32
	BytesOfKeyValueData   uint32
}

// ktxLoaderBackend reads the base level of uncompressed 8-bit KTX 1.1 textures.
type ktxLoaderBackend struct{}

var _ loaderBackend = &ktxLoaderBackend{}

func newKTXLoaderBackend() loaderBackend {
	return &ktxLoaderBackend{}
}

func (b *ktxLoaderBackend) Load(path string) (*common.ImportedTexture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tex, err := b.LoadReader(filepath.Base(path), bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	tex.Path = path
	return tex, nil
}

func (b *ktxLoaderBackend) LoadReader(name string, r io.Reader) (*common.ImportedTexture, error) {
	var ident [12]byte
	if _, err := io.ReadFull(r, ident[:]); err != nil {
		return nil, fmt.Errorf("read KTX identifier: %w", err)
	}
	if ident != ktxIdentifier {
		return nil, fmt.Errorf("%s is not a KTX 1.1 file", name)
	}

	var marker [4]byte
	if _, err := io.ReadFull(r, marker[:]); err != nil {
		return nil, fmt.Errorf("read KTX endianness: %w", err)
	}
	var order binary.ByteOrder = binary.LittleEndian
	switch {
	case binary.LittleEndian.Uint32(marker[:]) == ktxEndianness:
	case binary.BigEndian.Uint32(marker[:]) == ktxEndianness:
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("bad KTX endianness marker %x", marker)
	}

	var h ktxHeader
	if err := binary.Read(r, order, &h); err != nil {
		return nil, fmt.Errorf("read KTX header: %w", err)
	}
	channels, err := ktxChannels(h)
	if err != nil {
		return nil, err
	}

	if _, err := io.CopyN(io.Discard, r, int64(h.BytesOfKeyValueData)); err != nil {
		return nil, fmt.Errorf("skip KTX key/value data: %w", err)
	}

	var imageSize uint32
	if err := binary.Read(r, order, &imageSize); err != nil {
		return nil, fmt.Errorf("read KTX image size: %w", err)
	}

	width, height := int(h.PixelWidth), max(int(h.PixelHeight), 1)
	rowBytes := width * channels
	stride := int(common.AlignUp(uint64(rowBytes), 4))
	if int(imageSize) != stride*height {
		return nil, fmt.Errorf("%w: %d bytes declared for %dx%d with %d channels", ErrKTXImageSize, imageSize, width, height, channels)
	}

	level := make([]byte, imageSize)
	if _, err := io.ReadFull(r, level); err != nil {
		return nil, fmt.Errorf("read KTX image data: %w", err)
	}

	pixels := make([]byte, width*height*4)
	for y := range height {
		row := level[y*stride : y*stride+rowBytes]
		for x := range width {
			src := row[x*channels : (x+1)*channels]
			dst := pixels[(y*width+x)*4 : (y*width+x)*4+4]
			switch channels {
			case 1:
				dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 255
			case 3:
				dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
			case 4:
				copy(dst, src)
			}
		}
	}

	return &common.ImportedTexture{
		Name:     name,
		MimeType: "image/ktx",
		Width:    width,
		Height:   height,
		Pixels:   pixels,
	}, nil
}

// ktxChannels validates the header and returns the number of 8-bit channels per texel.
func ktxChannels(h ktxHeader) (int, error) {
	if h.GLType != glUnsignedByte || h.GLTypeSize != 1 {
		return 0, fmt.Errorf("%w: glType 0x%x (compressed or not 8-bit)", ErrUnsupportedKTX, h.GLType)
	}
	if h.PixelDepth > 1 || h.NumberOfArrayElements > 0 || h.NumberOfFaces > 1 {
		return 0, fmt.Errorf("%w: only single 2D images are supported", ErrUnsupportedKTX)
	}
	if h.PixelWidth == 0 {
		return 0, fmt.Errorf("%w: zero width", ErrUnsupportedKTX)
	}
	if h.PixelWidth > maxKTXDimension || h.PixelHeight > maxKTXDimension {
		return 0, fmt.Errorf("%w: %dx%d exceeds %d", ErrUnsupportedKTX, h.PixelWidth, h.PixelHeight, maxKTXDimension)
	}
	switch h.GLFormat {
	case glRed, glLuminance:
		return 1, nil
	case glRGB:
		return 3, nil
	case glRGBA:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: glFormat 0x%x", ErrUnsupportedKTX, h.GLFormat)
}

// sniffKTX reports whether data starts with the KTX 1.1 identifier.
func sniffKTX(data []byte) bool {
	return bytes.HasPrefix(data, ktxIdentifier[:])
}
