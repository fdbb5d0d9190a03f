package shader

// ShaderBuilderOption is a functional option for configuring a Shader before it compiles.
type ShaderBuilderOption func(*shader)

// WithSource compiles the given WGSL text instead of reading the source path.
// The path, if any, is kept for error messages only.
//
// Parameters:
//   - source: the raw WGSL source, annotations included
//
// Returns:
//   - ShaderBuilderOption: a function that applies the source to a shader
func WithSource(source string) ShaderBuilderOption {
	return func(s *shader) {
		s.rawSource = &source
	}
}

// WithStrictValidation makes naga lowering and validation findings fatal.
// By default they are kept as diagnostics and logged at warn level.
//
// Parameters:
//   - strict: true to fail compilation on any front-end finding
//
// Returns:
//   - ShaderBuilderOption: a function that applies the strictness to a shader
func WithStrictValidation(strict bool) ShaderBuilderOption {
	return func(s *shader) {
		s.strict = strict
	}
}
