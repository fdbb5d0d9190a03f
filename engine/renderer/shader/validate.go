package shader

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// validation holds the outcome of running WGSL source through the naga front end.
type validation struct {
	// module is the lowered IR, or nil when lowering failed.
	module *ir.Module

	// diagnostics holds lowering and validation messages that did not stop compilation.
	diagnostics []string
}

// validateWGSL parses, lowers and validates WGSL source with naga.
// A parse failure is always an error. Lowering and validation findings are reported as
// diagnostics, and only become an error when strict is set, because the naga front end
// trails the WGSL accepted by wgpu.
//
// Parameters:
//   - source: the pre-processed WGSL source
//   - strict: whether lowering and validation findings fail the compile
//
// Returns:
//   - validation: the lowered module (if any) and diagnostics
//   - error: the parse error, or the first finding when strict
func validateWGSL(source string, strict bool) (validation, error) {
	var v validation

	ast, err := naga.Parse(source)
	if err != nil {
		return v, err
	}

	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		v.diagnostics = append(v.diagnostics, fmt.Sprintf("lower: %v", err))
		if strict {
			return v, err
		}
		return v, nil
	}
	v.module = module

	findings, err := naga.Validate(module)
	if err != nil {
		v.diagnostics = append(v.diagnostics, fmt.Sprintf("validate: %v", err))
		if strict {
			return v, err
		}
	}
	for _, f := range findings {
		v.diagnostics = append(v.diagnostics, fmt.Sprintf("validate: %s", f.Error()))
	}
	if strict && len(findings) > 0 {
		return v, fmt.Errorf("%d validation finding(s), first: %s", len(findings), findings[0].Error())
	}
	return v, nil
}

// irStage maps a ShaderType onto the naga shader stage.
func irStage(t ShaderType) (ir.ShaderStage, bool) {
	switch t {
	case ShaderTypeVertex:
		return ir.StageVertex, true
	case ShaderTypeFragment:
		return ir.StageFragment, true
	case ShaderTypeCompute:
		return ir.StageCompute, true
	}
	return 0, false
}

// entryPoint returns the first entry point of the lowered module matching the stage.
func (v validation) entryPoint(t ShaderType) (ir.EntryPoint, bool) {
	if v.module == nil {
		return ir.EntryPoint{}, false
	}
	stage, ok := irStage(t)
	if !ok {
		return ir.EntryPoint{}, false
	}
	for _, ep := range v.module.EntryPoints {
		if ep.Stage == stage {
			return ep, true
		}
	}
	return ir.EntryPoint{}, false
}

// hasBinding reports whether the lowered module declares a resource at group/binding.
// Without a lowered module every binding is assumed present.
func (v validation) hasBinding(group, binding int) bool {
	if v.module == nil {
		return true
	}
	for _, gv := range v.module.GlobalVariables {
		if gv.Binding != nil && int(gv.Binding.Group) == group && int(gv.Binding.Binding) == binding {
			return true
		}
	}
	return false
}
