package bind_group_provider

import "testing"

func TestNewBindGroupProviderLabel(t *testing.T) {
	p := NewBindGroupProvider("compress_input")
	if got := p.Label(); got != "compress_input" {
		t.Errorf("Label() = %q, want compress_input", got)
	}
	if p.BindGroup() != nil || p.BindGroupLayout() != nil {
		t.Error("a new provider must not hold GPU objects")
	}
	if p.Buffers() == nil || p.TextureViews() == nil || p.Samplers() == nil {
		t.Error("resource maps must be allocated")
	}
}

func TestBorrowTracking(t *testing.T) {
	p := NewBindGroupProvider("p", WithBorrowedBuffer(1, nil), WithBorrowedTextureView(0, nil))

	tests := []struct {
		binding int
		want    bool
	}{
		{0, true},
		{1, true},
		{2, false},
	}
	for _, tt := range tests {
		if got := p.IsBorrowed(tt.binding); got != tt.want {
			t.Errorf("IsBorrowed(%d) = %v, want %v", tt.binding, got, tt.want)
		}
	}

	p.SetBuffer(1, nil)
	if p.IsBorrowed(1) {
		t.Error("SetBuffer should take ownership of binding 1")
	}
}

func TestSettersPopulateMaps(t *testing.T) {
	p := NewBindGroupProvider("p")
	p.SetBuffer(2, nil)
	p.SetTextureView(0, nil)
	p.SetSampler(1, nil)

	if _, ok := p.Buffers()[2]; !ok {
		t.Error("buffer binding 2 missing")
	}
	if _, ok := p.TextureViews()[0]; !ok {
		t.Error("texture view binding 0 missing")
	}
	if _, ok := p.Samplers()[1]; !ok {
		t.Error("sampler binding 1 missing")
	}
}

func TestReleaseClearsMaps(t *testing.T) {
	p := NewBindGroupProvider("p", WithBuffer(0, nil), WithBorrowedTextureView(1, nil))
	p.Release()

	if len(p.Buffers()) != 0 || len(p.TextureViews()) != 0 || len(p.Samplers()) != 0 {
		t.Error("Release left entries behind")
	}
	if p.IsBorrowed(1) {
		t.Error("Release left borrow marks behind")
	}
	p.Release()
}
