package uistate

// engineBase carries what every built-in evaluator shares: its name, the
// optional program cache and a private copy of the function registry.
type engineBase struct {
	engine   string
	cache    ProgramCache
	registry *FunctionRegistry
}

func (b *engineBase) useRegistry(registry *FunctionRegistry) {
	if registry != nil {
		b.registry = registry.Clone()
	}
}

// cachedProgram returns the program cached under key for b's engine or
// compiles and stores a new one. Keys are namespaced per engine so a single
// cache can serve several evaluators.
func cachedProgram[P any](b *engineBase, key string, compile func() (P, error)) (P, error) {
	if b.cache == nil {
		return compile()
	}
	key = b.engine + ":" + key
	if cached, ok := b.cache.Get(key); ok {
		if program, ok := cached.(P); ok {
			return program, nil
		}
	}
	program, err := compile()
	if err != nil {
		return program, err
	}
	b.cache.Set(key, program)
	return program, nil
}

// selectorBindings returns the variables every engine exposes: now, args,
// metadata, key, state and each non-reserved top-level state field.
func selectorBindings(ctx SelectContext) map[string]any {
	ctx = ctx.withDefaults()
	fields := snapshotFields(ctx.Snapshot)
	bindings := make(map[string]any, len(fields)+5)
	for name, value := range fields {
		bindings[name] = value
	}
	bindings["now"] = ctx.timestamp()
	bindings["args"] = ctx.Args
	bindings["metadata"] = ctx.Metadata
	bindings["key"] = ctx.Key
	bindings["state"] = ctx.Snapshot
	return bindings
}

// snapshotFields lists the top-level fields of an object snapshot that do
// not collide with a reserved binding.
func snapshotFields(snapshot any) map[string]any {
	object, ok := snapshot.(map[string]any)
	if !ok {
		return nil
	}
	fields := make(map[string]any, len(object))
	for name, value := range object {
		if !reservedBinding(name) {
			fields[name] = value
		}
	}
	return fields
}

// functionBindings exposes registry functions as call(name, ...) and under
// their own names.
func functionBindings(registry *FunctionRegistry, into map[string]any) {
	if registry == nil {
		return
	}
	into["call"] = func(name string, arguments ...any) (any, error) {
		return registry.Call(name, arguments...)
	}
	for _, name := range registry.Names() {
		name := name
		into[name] = func(arguments ...any) (any, error) {
			return registry.Call(name, arguments...)
		}
	}
}
