package activity

import (
	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/internal/script"
	"github.com/procflow/procflow/pkg/types"
)

// ScriptTask runs an embedded script with the resolved inputs as globals
// and writes the declared script globals back into workflow variables.
type ScriptTask struct {
	Runner *script.Runner
}

func (b *ScriptTask) Kind() string { return types.KindScriptTask }

func (b *ScriptTask) Parse(a *types.Activity, issues *types.Issues) {
	if a.Script == "" {
		issues.AddError(a.ID, "script task without a script")
	}
}

func (b *ScriptTask) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	inputs, err := ex.ResolveInputs(def, ai)
	if err != nil {
		return err
	}

	globals := make(map[string]any, len(inputs))
	for name, tv := range inputs {
		globals[name] = tv.Value
	}
	outputs := make([]string, 0, len(def.ScriptOutputs))
	for global := range def.ScriptOutputs {
		outputs = append(outputs, global)
	}

	res, err := b.Runner.Run(def.Script, globals, outputs)
	if err != nil {
		return err
	}
	for global, variableID := range def.ScriptOutputs {
		v, ok := res.Outputs[global]
		if !ok {
			continue
		}
		if err := ex.SetVariable(ai, variableID, v); err != nil {
			return err
		}
	}
	return ex.Onwards(ai)
}
