package addon

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
)

// ScriptRenderer runs a JavaScript renderer. The script must define a global
// `modes` array of mode names and a `render(json, mode)` function.
//
//	var modes = ["full"];
//	function render(json, mode) { return { title: json.name }; }
//
// Each Render call runs in a fresh runtime, so a ScriptRenderer is safe for
// concurrent use.
type ScriptRenderer struct {
	name    string
	program *goja.Program
	modes   []Mode
}

// NewScriptRenderer compiles source and reads its declared modes.
func NewScriptRenderer(name, source string) (*ScriptRenderer, error) {
	program, err := goja.Compile(name, source, true)
	if err != nil {
		return nil, fmt.Errorf("addon: compile script %s: %w", name, err)
	}
	vm := goja.New()
	if _, err := vm.RunProgram(program); err != nil {
		return nil, fmt.Errorf("addon: run script %s: %w", name, err)
	}
	modes, err := scriptModes(vm)
	if err != nil {
		return nil, fmt.Errorf("addon: script %s: %w", name, err)
	}
	if _, ok := goja.AssertFunction(vm.Get("render")); !ok {
		return nil, fmt.Errorf("addon: script %s: render is not a function", name)
	}
	return &ScriptRenderer{name: name, program: program, modes: modes}, nil
}

// ScriptLoader defers compiling source until the renderer is first needed.
func ScriptLoader(name, source string) Loader {
	return func(context.Context) (Renderer, error) {
		return NewScriptRenderer(name, source)
	}
}

func scriptModes(vm *goja.Runtime) ([]Mode, error) {
	value := vm.Get("modes")
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, fmt.Errorf("modes is not defined")
	}
	exported, ok := value.Export().([]any)
	if !ok {
		return nil, fmt.Errorf("modes must be an array, got %T", value.Export())
	}
	modes := make([]Mode, 0, len(exported))
	for _, raw := range exported {
		name, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("mode %v is not a string", raw)
		}
		modes = append(modes, Mode(name))
	}
	return modes, nil
}

func (s *ScriptRenderer) Name() string { return s.name }

func (s *ScriptRenderer) Modes() []Mode {
	return append([]Mode(nil), s.modes...)
}

// Render calls the script's render function. The run is interrupted when ctx
// is done.
func (s *ScriptRenderer) Render(ctx context.Context, item Item, mode Mode) (any, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	if ctx != nil {
		stop := context.AfterFunc(ctx, func() {
			vm.Interrupt(ctx.Err())
		})
		defer stop()
	}
	if _, err := vm.RunProgram(s.program); err != nil {
		return nil, fmt.Errorf("addon: run script %s: %w", s.name, err)
	}
	fn, ok := goja.AssertFunction(vm.Get("render"))
	if !ok {
		return nil, fmt.Errorf("addon: script %s: render is not a function", s.name)
	}
	result, err := fn(goja.Undefined(), vm.ToValue(item.JSON), vm.ToValue(string(mode)))
	if err != nil {
		return nil, fmt.Errorf("addon: script %s render: %w", s.name, err)
	}
	return result.Export(), nil
}
