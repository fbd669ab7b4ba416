package fsm

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/barrage/logger"
)

// newScriptAction compiles a tengo script once. Each run sees these globals:
//
//	engine   get_float, set_float, add_float, get_bool, set_bool, emit
//	state    active state name
//	elapsed  time in state
//	dt       frame step
func newScriptAction(name string, load func(string) ([]byte, error)) (Action, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("script: missing path")
	}
	src, err := load(name)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}

	script := tengo.NewScript(src)
	_ = script.Add("engine", map[string]any{})
	_ = script.Add("state", "")
	_ = script.Add("elapsed", 0.0)
	_ = script.Add("dt", 0.0)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}

	return func(ctx *Context) {
		if err := runScript(compiled, ctx); err != nil {
			ctx.Machine.Logger().Error("script failed", logger.State(ctx.State), logger.Error(err))
		}
	}, nil
}

func runScript(compiled *tengo.Compiled, ctx *Context) error {
	if err := compiled.Set("engine", scriptEngine(ctx)); err != nil {
		return err
	}
	if err := compiled.Set("state", string(ctx.State)); err != nil {
		return err
	}
	if err := compiled.Set("elapsed", ctx.Elapsed); err != nil {
		return err
	}
	if err := compiled.Set("dt", ctx.DT); err != nil {
		return err
	}
	return compiled.Run()
}

func scriptEngine(ctx *Context) *tengo.ImmutableMap {
	fn := func(name string, f func(args ...tengo.Object) (tengo.Object, error)) *tengo.UserFunction {
		return &tengo.UserFunction{Name: name, Value: f}
	}

	values := map[string]tengo.Object{
		"get_float": fn("get_float", func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 1 {
				return tengo.UndefinedValue, nil
			}
			f, ok := ctx.Vars.Float(objectAsString(args[0]))
			if !ok {
				return tengo.UndefinedValue, nil
			}
			return &tengo.Float{Value: f}, nil
		}),
		"set_float": fn("set_float", func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 2 {
				return tengo.FalseValue, nil
			}
			f, ok := tengo.ToFloat64(args[1])
			if !ok {
				return tengo.FalseValue, nil
			}
			ctx.Vars.SetFloat(objectAsString(args[0]), f)
			return tengo.TrueValue, nil
		}),
		"add_float": fn("add_float", func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 2 {
				return tengo.UndefinedValue, nil
			}
			f, ok := tengo.ToFloat64(args[1])
			if !ok {
				return tengo.UndefinedValue, nil
			}
			return &tengo.Float{Value: ctx.Vars.AddFloat(objectAsString(args[0]), f)}, nil
		}),
		"get_bool": fn("get_bool", func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 1 {
				return tengo.FalseValue, nil
			}
			if b, _ := ctx.Vars.Bool(objectAsString(args[0])); b {
				return tengo.TrueValue, nil
			}
			return tengo.FalseValue, nil
		}),
		"set_bool": fn("set_bool", func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 2 {
				return tengo.FalseValue, nil
			}
			ctx.Vars.SetBool(objectAsString(args[0]), !args[1].IsFalsy())
			return tengo.TrueValue, nil
		}),
		"emit": fn("emit", func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 1 {
				return tengo.FalseValue, nil
			}
			name := strings.TrimSpace(objectAsString(args[0]))
			if name == "" {
				return tengo.FalseValue, nil
			}
			ctx.Emit(EventID(name))
			return tengo.TrueValue, nil
		}),
	}
	return &tengo.ImmutableMap{Value: values}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	if s, ok := obj.(*tengo.String); ok {
		return s.Value
	}
	return strings.Trim(obj.String(), "\"")
}
