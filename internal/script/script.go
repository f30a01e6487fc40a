// Package script runs script-task sources in a goja sandbox. Input
// parameters are injected as globals, console output is captured, and
// declared outputs are read back from the runtime after execution.
package script

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Result holds the outcome of one script run.
type Result struct {
	// Outputs maps the requested global names to their values after the
	// script finished.
	Outputs map[string]any
	// ConsoleLogs holds captured console.* lines in emit order.
	ConsoleLogs []string
	Duration    time.Duration
}

// Runner evaluates scripts. A Runner is safe for sequential reuse; the
// engine creates one per script task execution.
type Runner struct {
	timeout time.Duration
}

// NewRunner creates a runner with the given per-script timeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{timeout: timeout}
}

// Run evaluates source with the given globals and reads back the named
// outputs.
func (r *Runner) Run(source string, globals map[string]any, outputs []string) (*Result, error) {
	vm := goja.New()
	res := &Result{Outputs: make(map[string]any)}

	if err := setupConsole(vm, &res.ConsoleLogs); err != nil {
		return nil, err
	}
	for name, value := range globals {
		if err := vm.Set(name, value); err != nil {
			return nil, fmt.Errorf("cannot inject variable %s: %w", name, err)
		}
	}

	timer := time.AfterFunc(r.timeout, func() {
		vm.Interrupt("script timeout")
	})
	defer timer.Stop()

	start := time.Now()
	_, err := vm.RunString(source)
	res.Duration = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}

	for _, name := range outputs {
		v := vm.Get(name)
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			continue
		}
		res.Outputs[name] = v.Export()
	}
	return res, nil
}

func setupConsole(vm *goja.Runtime, logs *[]string) error {
	console := vm.NewObject()
	logFn := func(level string) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			line := "[" + level + "]"
			for _, arg := range call.Arguments {
				line += " " + fmt.Sprintf("%v", arg.Export())
			}
			*logs = append(*logs, line)
			return goja.Undefined()
		}
	}
	if err := console.Set("log", logFn("LOG")); err != nil {
		return err
	}
	if err := console.Set("info", logFn("INFO")); err != nil {
		return err
	}
	if err := console.Set("warn", logFn("WARN")); err != nil {
		return err
	}
	if err := console.Set("error", logFn("ERROR")); err != nil {
		return err
	}
	return vm.Set("console", console)
}
