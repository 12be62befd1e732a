// File path: internal/rulecode/run.go
package rulecode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beefed-up-geek/code-as-auditors/internal/common"
	"github.com/beefed-up-geek/code-as-auditors/internal/expr"
)

// Outcome is what one program execution recorded.
type Outcome struct {
	Results []string
	Errors  []string
}

// driverName labels failures of the driver itself rather than one unit.
const driverName = "MAIN"

type runner struct {
	env     *expr.Env
	units   map[string]Unit
	outcome *Outcome
}

// Run executes a program. Unit failures are isolated: the failing unit
// records an error line and its siblings still run. A driver-level failure
// records a MAIN error and suppresses the compliance result.
func Run(program *Program) *Outcome {
	r := &runner{
		env:     expr.NewEnv(),
		units:   make(map[string]Unit, len(program.Units)),
		outcome: &Outcome{},
	}
	for _, entry := range program.Checklist {
		r.env.Bools[entry.Name] = entry.Value
	}
	for _, name := range program.LawState {
		if _, ok := r.env.Maps[name]; ok {
			continue
		}
		r.env.Maps[name] = map[string]bool{"condition": false, "legal": true}
	}
	for _, unit := range program.Units {
		r.units[unit.VarName] = unit
	}

	for _, root := range program.Roots {
		if err := r.invoke(root); err != nil {
			common.Logger().Debug("rulecode: driver failed", "case", program.CaseID, "error", err)
			r.recordError(driverName)
			return r.outcome
		}
	}

	var violated []string
	for name, state := range r.env.Maps {
		if strings.HasPrefix(name, "LAW_") && !state["legal"] {
			violated = append(violated, name)
		}
	}
	sort.Strings(violated)
	if len(violated) > 0 {
		r.outcome.Results = append(r.outcome.Results, "Non-compliant law variables: "+strings.Join(violated, ", "))
	} else {
		r.outcome.Results = append(r.outcome.Results, "No non-compliant law variables detected.")
	}
	return r.outcome
}

// invoke runs one named unit, absorbing its failures into the error log.
// The only error returned is an unresolvable unit name, which belongs to the
// caller's failure domain.
func (r *runner) invoke(varName string) error {
	unit, ok := r.units[varName]
	if !ok {
		return fmt.Errorf("rulecode: unit %s not defined", varName)
	}
	if err := r.execUnit(unit); err != nil {
		common.Logger().Debug("rulecode: unit failed", "unit", unit.VarName, "error", err)
		r.recordError(unit.VarName)
	}
	return nil
}

func (r *runner) execUnit(unit Unit) error {
	if unit.Condition == "" {
		for _, call := range unit.Calls {
			if err := r.invoke(call); err != nil {
				return err
			}
		}
		return nil
	}

	applies, err := expr.EvalBool(unit.Condition, r.env)
	if err != nil {
		return err
	}
	if !applies {
		return nil
	}
	if err := r.setState(unit.VarName, "condition", true); err != nil {
		return err
	}
	for _, call := range unit.Calls {
		if err := r.invoke(call); err != nil {
			return err
		}
	}
	for _, line := range unit.Action {
		if err := expr.Exec(line, r.env); err != nil {
			return err
		}
	}
	if unit.Legal != "" {
		legal, err := expr.EvalBool(unit.Legal, r.env)
		if err != nil {
			return err
		}
		if !legal {
			if err := r.setState(unit.VarName, "legal", false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *runner) setState(varName, key string, value bool) error {
	state, ok := r.env.Maps[varName]
	if !ok {
		return fmt.Errorf("rulecode: no state record for %s", varName)
	}
	state[key] = value
	return nil
}

func (r *runner) recordError(varName string) {
	r.outcome.Errors = append(r.outcome.Errors, varName+" encountered an execution error")
}
