package shader

import (
	"fmt"
	"strings"
)

// ShaderCompileError reports a shader that could not be read, pre-processed, or validated.
type ShaderCompileError struct {
	// Key is the shader's registry key.
	Key string

	// Path is the source file, empty for in-memory sources.
	Path string

	// Diagnostics carries the front-end messages gathered before the failure.
	Diagnostics []string

	// Err is the underlying failure.
	Err error
}

func (e *ShaderCompileError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "shader %q", e.Key)
	if e.Path != "" {
		fmt.Fprintf(&sb, " (%s)", e.Path)
	}
	fmt.Fprintf(&sb, ": %v", e.Err)
	if len(e.Diagnostics) > 0 {
		fmt.Fprintf(&sb, " [%d diagnostic(s)]", len(e.Diagnostics))
	}
	return sb.String()
}

func (e *ShaderCompileError) Unwrap() error {
	return e.Err
}
