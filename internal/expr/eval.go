// File path: internal/expr/eval.go
package expr

import "fmt"

// Env holds the mutable variable state an expression runs against. Bools are
// flat boolean variables; Maps are keyed state records addressed by
// subscript, such as NAME['condition'].
type Env struct {
	Bools map[string]bool
	Maps  map[string]map[string]bool
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{
		Bools: make(map[string]bool),
		Maps:  make(map[string]map[string]bool),
	}
}

// value is either a bool or a mapRef during evaluation.
type value interface{}

type mapRef struct {
	name string
	data map[string]bool
}

// EvalBool parses and evaluates src, requiring a boolean result.
func EvalBool(src string, env *Env) (bool, error) {
	node, err := Parse(src)
	if err != nil {
		return false, err
	}
	return Bool(node, env)
}

// Bool evaluates a parsed expression, requiring a boolean result.
func Bool(node Node, env *Env) (bool, error) {
	val, err := node.eval(env)
	if err != nil {
		return false, err
	}
	b, ok := val.(bool)
	if !ok {
		if ref, isRef := val.(mapRef); isRef {
			return false, fmt.Errorf("expr: %s is a state record, not a boolean", ref.name)
		}
		return false, fmt.Errorf("expr: expression is not a boolean")
	}
	return b, nil
}

// Exec parses and executes one statement line against env.
func Exec(src string, env *Env) error {
	stmt, err := ParseStmt(src)
	if err != nil {
		return err
	}
	return stmt.Exec(env)
}

// Exec runs the statement. Assignments write through to env; bare
// expressions are evaluated and discarded.
func (s *Stmt) Exec(env *Env) error {
	if s.target == nil {
		_, err := s.expr.eval(env)
		return err
	}
	val, err := Bool(s.expr, env)
	if err != nil {
		return err
	}
	switch target := s.target.(type) {
	case identRef:
		if _, isMap := env.Maps[target.name]; isMap {
			return fmt.Errorf("expr: cannot overwrite state record %s with a boolean", target.name)
		}
		env.Bools[target.name] = val
		return nil
	case subscriptRef:
		record, ok := env.Maps[target.name]
		if !ok {
			return fmt.Errorf("expr: undefined variable %s", target.name)
		}
		record[target.key] = val
		return nil
	default:
		return fmt.Errorf("expr: unsupported assignment target")
	}
}

func (n boolLit) eval(*Env) (value, error) {
	return n.val, nil
}

func (n identRef) eval(env *Env) (value, error) {
	if v, ok := env.Bools[n.name]; ok {
		return v, nil
	}
	if m, ok := env.Maps[n.name]; ok {
		return mapRef{name: n.name, data: m}, nil
	}
	return nil, fmt.Errorf("expr: undefined variable %s", n.name)
}

func (n subscriptRef) eval(env *Env) (value, error) {
	record, ok := env.Maps[n.name]
	if !ok {
		if _, isBool := env.Bools[n.name]; isBool {
			return nil, fmt.Errorf("expr: %s is a boolean, not a state record", n.name)
		}
		return nil, fmt.Errorf("expr: undefined variable %s", n.name)
	}
	v, ok := record[n.key]
	if !ok {
		return nil, fmt.Errorf("expr: %s has no %q state", n.name, n.key)
	}
	return v, nil
}

func (n notOp) eval(env *Env) (value, error) {
	v, err := Bool(n.operand, env)
	if err != nil {
		return nil, err
	}
	return !v, nil
}

func (n binOp) eval(env *Env) (value, error) {
	switch n.op {
	case tokenAnd:
		lhs, err := Bool(n.lhs, env)
		if err != nil {
			return nil, err
		}
		if !lhs {
			return false, nil
		}
		return Bool(n.rhs, env)
	case tokenOr:
		lhs, err := Bool(n.lhs, env)
		if err != nil {
			return nil, err
		}
		if lhs {
			return true, nil
		}
		return Bool(n.rhs, env)
	case tokenEq, tokenNe:
		lhs, err := Bool(n.lhs, env)
		if err != nil {
			return nil, err
		}
		rhs, err := Bool(n.rhs, env)
		if err != nil {
			return nil, err
		}
		if n.op == tokenEq {
			return lhs == rhs, nil
		}
		return lhs != rhs, nil
	default:
		return nil, fmt.Errorf("expr: unsupported operator %s", n.op)
	}
}
