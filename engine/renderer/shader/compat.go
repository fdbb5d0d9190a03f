package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrLayoutMismatch is returned by CheckCompatible when a rebuilt shader cannot run against
// bind groups created for the live one.
var ErrLayoutMismatch = errors.New("bind group layout mismatch")

// CheckCompatible reports whether next can replace live without recreating the bind groups
// built from live's layout of group. Every identity must resolve to the same group and
// binding in both shaders, and both must declare the same layout entries for the group.
//
// Parameters:
//   - live: the shader whose layout the existing bind groups were created from
//   - next: the rebuilt shader
//   - group: the bind group index to compare
//   - identities: the @oxy identities the caller resolved from live
//
// Returns:
//   - error: wraps ErrLayoutMismatch naming the first difference, nil when compatible
func CheckCompatible(live, next Shader, group int, identities ...AnnotationArg) error {
	if next == nil {
		return fmt.Errorf("%w: no %s shader", ErrLayoutMismatch, live.ShaderType())
	}
	for _, id := range identities {
		lg, lb, _ := live.BindingFor(id)
		ng, nb, ok := next.BindingFor(id)
		if !ok {
			return fmt.Errorf("%w: %s is no longer declared", ErrLayoutMismatch, id)
		}
		if lg != ng || lb != nb {
			return fmt.Errorf("%w: %s moved from @group(%d) @binding(%d) to @group(%d) @binding(%d)",
				ErrLayoutMismatch, id, lg, lb, ng, nb)
		}
	}

	want := entriesByBinding(live.BindGroupLayoutDescriptor(group))
	got := entriesByBinding(next.BindGroupLayoutDescriptor(group))
	if len(want) != len(got) {
		return fmt.Errorf("%w: group %d has %d entries, want %d", ErrLayoutMismatch, group, len(got), len(want))
	}
	for binding, e := range want {
		if g, ok := got[binding]; !ok || g != e {
			return fmt.Errorf("%w: group %d binding %d changed", ErrLayoutMismatch, group, binding)
		}
	}
	return nil
}

func entriesByBinding(d wgpu.BindGroupLayoutDescriptor) map[uint32]wgpu.BindGroupLayoutEntry {
	m := make(map[uint32]wgpu.BindGroupLayoutEntry, len(d.Entries))
	for _, e := range d.Entries {
		m[e.Binding] = e
	}
	return m
}
