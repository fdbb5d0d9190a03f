package loader

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
	"github.com/Carmen-Shannon/oxy-rgtc/engine/renderer/bind_group_provider"
)

// writeKTX encodes an uncompressed 8-bit KTX 1.1 file with rows padded to four bytes.
func writeKTX(t *testing.T, order binary.ByteOrder, format uint32, channels, w, h int, texel func(x, y int) []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(ktxIdentifier[:])
	_ = binary.Write(&buf, order, uint32(ktxEndianness))

	kv := []byte("KTXorientation\x00S=r,T=d\x00\x00")
	hdr := ktxHeader{
		GLType:               glUnsignedByte,
		GLTypeSize:           1,
		GLFormat:             format,
		GLInternalFormat:     format,
		GLBaseInternalFormat: format,
		PixelWidth:           uint32(w),
		PixelHeight:          uint32(h),
		NumberOfFaces:        1,
		NumberOfMipmapLevels: 1,
		BytesOfKeyValueData:  uint32(len(kv)),
	}
	_ = binary.Write(&buf, order, hdr)
	buf.Write(kv)

	stride := (w*channels + 3) &^ 3
	_ = binary.Write(&buf, order, uint32(stride*h))
	for y := range h {
		row := make([]byte, stride)
		for x := range w {
			copy(row[x*channels:], texel(x, y))
		}
		buf.Write(row)
	}
	return buf.Bytes()
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / max(w-1, 1)), G: uint8(y), B: 7, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestKTXLoadReader(t *testing.T) {
	tests := []struct {
		name     string
		order    binary.ByteOrder
		format   uint32
		channels int
		texel    func(x, y int) []byte
		want     func(x, y int) [4]byte
	}{
		{
			name: "red little endian", order: binary.LittleEndian, format: glRed, channels: 1,
			texel: func(x, y int) []byte { return []byte{byte(x*16 + y)} },
			want: func(x, y int) [4]byte {
				v := byte(x*16 + y)
				return [4]byte{v, v, v, 255}
			},
		},
		{
			name: "rgb big endian", order: binary.BigEndian, format: glRGB, channels: 3,
			texel: func(x, y int) []byte { return []byte{byte(x), byte(y), 9} },
			want:  func(x, y int) [4]byte { return [4]byte{byte(x), byte(y), 9, 255} },
		},
		{
			name: "rgba", order: binary.LittleEndian, format: glRGBA, channels: 4,
			texel: func(x, y int) []byte { return []byte{byte(x), byte(y), 1, 128} },
			want:  func(x, y int) [4]byte { return [4]byte{byte(x), byte(y), 1, 128} },
		},
	}

	// Width 5 forces row padding for 1 and 3 channel formats.
	const w, h = 5, 3
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := writeKTX(t, tt.order, tt.format, tt.channels, w, h, tt.texel)
			tex, err := newKTXLoaderBackend().LoadReader("tex.ktx", bytes.NewReader(data))
			if err != nil {
				t.Fatalf("LoadReader: %v", err)
			}
			if tex.Width != w || tex.Height != h || tex.MimeType != "image/ktx" {
				t.Fatalf("got %dx%d %q, want %dx%d image/ktx", tex.Width, tex.Height, tex.MimeType, w, h)
			}
			for y := range h {
				for x := range w {
					i := (y*w + x) * 4
					var got [4]byte
					copy(got[:], tex.Pixels[i:i+4])
					if want := tt.want(x, y); got != want {
						t.Fatalf("texel (%d,%d) = %v, want %v", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestKTXRejectsUnsupported(t *testing.T) {
	base := ktxHeader{GLType: glUnsignedByte, GLTypeSize: 1, GLFormat: glRGBA, PixelWidth: 4, PixelHeight: 4, NumberOfFaces: 1}

	compressed := base
	compressed.GLType, compressed.GLFormat = 0, 0
	cube := base
	cube.NumberOfFaces = 6
	depth := base
	depth.GLFormat = 0x1902
	huge := base
	huge.PixelWidth, huge.PixelHeight = 1<<20, 1<<20

	for name, h := range map[string]ktxHeader{"compressed": compressed, "cubemap": cube, "depth format": depth, "oversized": huge} {
		t.Run(name, func(t *testing.T) {
			if _, err := ktxChannels(h); !errors.Is(err, ErrUnsupportedKTX) {
				t.Errorf("ktxChannels() error = %v, want ErrUnsupportedKTX", err)
			}
		})
	}

	if _, err := newKTXLoaderBackend().LoadReader("x", bytes.NewReader([]byte("not a ktx file at all"))); err == nil {
		t.Error("bad identifier accepted")
	}
}

func TestKTXRejectsMismatchedImageSize(t *testing.T) {
	valid := writeKTX(t, binary.LittleEndian, glRGBA, 4, 4, 4, func(x, y int) []byte { return []byte{1, 2, 3, 4} })
	// The image size word sits just before the 64 byte level.
	sizeAt := len(valid) - 4*4*4 - 4

	tests := []struct {
		name string
		size uint32
	}{
		{name: "larger than the header allows", size: 0xFFFFFFF0},
		{name: "smaller than one image", size: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := bytes.Clone(valid)
			binary.LittleEndian.PutUint32(data[sizeAt:], tt.size)
			_, err := newKTXLoaderBackend().LoadReader("bad", bytes.NewReader(data))
			if !errors.Is(err, ErrKTXImageSize) {
				t.Errorf("LoadReader() error = %v, want ErrKTXImageSize", err)
			}
		})
	}
}

func TestLoaderLoadPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src.png")
	writePNG(t, path, 16, 8)

	l := NewLoader()
	tex, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tex.Width != 16 || tex.Height != 8 || len(tex.Pixels) != 16*8*4 {
		t.Fatalf("decoded %dx%d with %d bytes", tex.Width, tex.Height, len(tex.Pixels))
	}
	if tex.Pixels[0] != 0 || tex.Pixels[15*4] != 255 {
		t.Errorf("red ramp endpoints = %d, %d; want 0, 255", tex.Pixels[0], tex.Pixels[15*4])
	}

	again, _ := l.Load(path)
	if again != tex {
		t.Error("second Load did not return the cached texture")
	}
}

func TestLoaderTargetSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.png")
	writePNG(t, path, 32, 32)

	tex, err := NewLoader(WithTargetSize(128, 64)).Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tex.Width != 128 || tex.Height != 64 || len(tex.Pixels) != 128*64*4 {
		t.Errorf("resized to %dx%d with %d bytes, want 128x64", tex.Width, tex.Height, len(tex.Pixels))
	}
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "missing.png"))
	var loadErr *AssetLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Load() error = %v, want *AssetLoadError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Load() error = %v, want it to wrap fs.ErrNotExist", err)
	}
}

func TestLoaderLoadReaderSniffsKTX(t *testing.T) {
	data := writeKTX(t, binary.LittleEndian, glRed, 1, 4, 4, func(x, y int) []byte { return []byte{200} })
	l := NewLoader()
	tex, err := l.LoadReader("mem", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if tex.MimeType != "image/ktx" || tex.Pixels[0] != 200 {
		t.Errorf("got mime %q first texel %d", tex.MimeType, tex.Pixels[0])
	}

	if _, err := l.LoadReader("junk", bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Error("undecodable data accepted")
	}
}

func TestResizeKeepsSameSize(t *testing.T) {
	tex := &common.ImportedTexture{Width: 4, Height: 4, Pixels: make([]byte, 64)}
	if Resize(tex, 4, 4) != tex {
		t.Error("Resize to the same size copied the texture")
	}

	// A constant image stays constant under any interpolating filter.
	for i := range tex.Pixels {
		tex.Pixels[i] = 90
	}
	out := Resize(tex, 8, 12)
	if out.Width != 8 || out.Height != 12 {
		t.Fatalf("Resize() = %dx%d", out.Width, out.Height)
	}
	for i, v := range out.Pixels {
		if v < 89 || v > 90 {
			t.Fatalf("pixel byte %d = %d, want 90", i, v)
		}
	}
}

type fakeUploader struct {
	textures map[int]common.TextureStagingData
	samplers map[int]common.SamplerStagingData
}

func (f *fakeUploader) InitTextureView(_ bind_group_provider.BindGroupProvider, key int, d common.TextureStagingData) error {
	f.textures[key] = d
	return nil
}

func (f *fakeUploader) InitSampler(_ bind_group_provider.BindGroupProvider, key int, d common.SamplerStagingData) error {
	f.samplers[key] = d
	return nil
}

func TestLoaderUpload(t *testing.T) {
	up := &fakeUploader{textures: map[int]common.TextureStagingData{}, samplers: map[int]common.SamplerStagingData{}}
	nearest := common.NearestClampSampler()
	tex := &common.ImportedTexture{Name: "t", Width: 2, Height: 2, Pixels: make([]byte, 16), SamplerData: &nearest}

	if err := NewLoader().Upload(tex, nil, 0, 1); err == nil {
		t.Error("Upload without uploader succeeded")
	}

	l := NewLoader(WithUploader(up))
	if err := l.Upload(tex, nil, 0, 1); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got := up.textures[0]; got.Width != 2 || got.Height != 2 {
		t.Errorf("staged texture %dx%d", got.Width, got.Height)
	}
	if up.samplers[1] != nearest {
		t.Error("texture sampler data was not used")
	}

	if err := l.Upload(&common.ImportedTexture{Name: "empty"}, nil, 0, -1); err == nil {
		t.Error("Upload of undecoded texture succeeded")
	}
}
