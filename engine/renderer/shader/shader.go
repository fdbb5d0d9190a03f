package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-rgtc/common"
)

// ShaderType identifies which pipeline stage a shader provides.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the WGSL attribute name of the stage.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	}
	return fmt.Sprintf("ShaderType(%d)", int(t))
}

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	path                       string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	diagnostics                []string
	strict                     bool
	rawSource                  *string

	pp PreProcessor
}

// Shader defines the interface for a loaded, pre-processed, and validated WGSL shader.
// It exposes everything pipeline creation and resource wiring need: the module descriptor,
// entry point, workgroup size, bind group layouts, and the @oxy declarations.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Path retrieves the file the shader was read from.
	//
	// Returns:
	//   - string: the source path, or an empty string for in-memory sources
	Path() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source handed to the GPU
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindingFor locates the binding declared with an @oxy:provider identity or an
	// @oxy:group struct type.
	//
	// Parameters:
	//   - identity: the provider identity or struct type key
	//
	// Returns:
	//   - int: the group index
	//   - int: the binding index
	//   - bool: true if the shader declares the identity
	BindingFor(identity AnnotationArg) (int, int, bool)

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "cs_main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size for compute shaders, [0, 0, 0] otherwise.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the descriptor used to create the GPU shader module.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the stage this shader provides.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// Declarations returns the @oxy:group and @oxy:provider annotations parsed from the source.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation

	// Diagnostics returns the non-fatal front-end messages collected during validation.
	//
	// Returns:
	//   - []string: the diagnostics, empty when the source validated cleanly
	Diagnostics() []string
}

var _ Shader = &shader{}

// NewShader reads, pre-processes and validates a WGSL shader. Bind group layouts, the entry
// point and the workgroup size are reflected from the result. Every failure is returned as a
// *ShaderCompileError.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage the shader provides
//   - sourcePath: the file path to read WGSL source from (ignored when WithSource is given)
//   - options: functional options applied before the source is read
//
// Returns:
//   - Shader: the compiled shader
//   - error: a *ShaderCompileError describing the failure
func NewShader(key string, shaderType ShaderType, sourcePath string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:                        key,
		path:                       sourcePath,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		pp:                         NewPreProcessor(),
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.compile(); err != nil {
		return nil, &ShaderCompileError{Key: key, Path: s.path, Diagnostics: s.diagnostics, Err: err}
	}
	for _, d := range s.diagnostics {
		common.Logger().Warn("shader diagnostic", "shader", key, "message", d)
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindingFor(identity AnnotationArg) (int, int, bool) {
	for _, d := range s.pp.Declarations() {
		if d.Identity() == identity {
			return *d.Group, *d.Binding, true
		}
	}
	return -1, -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

func (s *shader) Diagnostics() []string {
	return s.diagnostics
}

// compile runs the source through the pre-processor and the naga front end, then reflects
// the entry point, workgroup size and bind group layouts. Reflection prefers the lowered
// IR and falls back to scanning the source when naga could not lower it.
func (s *shader) compile() error {
	var raw string
	if s.rawSource != nil {
		raw = *s.rawSource
	} else {
		if s.path == "" {
			return errors.New("no source path provided")
		}
		data, err := os.ReadFile(s.path)
		if err != nil {
			return fmt.Errorf("failed to read source file: %w", err)
		}
		raw = string(data)
	}

	source, err := s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("failed to pre-process shader source: %w", err)
	}
	s.source = source

	v, err := validateWGSL(source, s.strict)
	s.diagnostics = v.diagnostics
	if err != nil {
		return fmt.Errorf("WGSL validation failed: %w", err)
	}

	if ep, ok := v.entryPoint(s.shaderType); ok {
		s.entryPoint = ep.Name
		if s.shaderType == ShaderTypeCompute {
			s.workGroupSize = ep.Workgroup
		}
	} else {
		s.entryPoint = parseEntryPoint(source, s.shaderType)
		if s.shaderType == ShaderTypeCompute {
			s.workGroupSize = parseWorkgroupSize(source)
		}
	}
	if s.entryPoint == "" {
		return fmt.Errorf("no @%s entry point declared", s.shaderType)
	}

	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		visibility = wgpu.ShaderStageCompute
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(source, visibility)

	for group, bindings := range s.bindingVarNames {
		for binding, name := range bindings {
			if !v.hasBinding(group, binding) {
				s.diagnostics = append(s.diagnostics, fmt.Sprintf("reflect: %s at @group(%d) @binding(%d) missing from lowered module", name, group, binding))
			}
		}
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	return nil
}
