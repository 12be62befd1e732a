// File path: internal/expr/expr_test.go
package expr

import (
	"strings"
	"testing"
)

func testEnv() *Env {
	env := NewEnv()
	env.Bools["BUSINESS_USES_PERSONAL_INFORMATION"] = true
	env.Bools["BUSINESS_OUTSOURCES_PROCESSING"] = false
	env.Bools["RECIEVE_CONSENT"] = true
	env.Maps["LAW_A26_P1"] = map[string]bool{"condition": false, "legal": true}
	env.Maps["LAW_A26_P7"] = map[string]bool{"condition": true, "legal": false}
	return env
}

func TestEvalBoolLiteralsAndIdentifiers(t *testing.T) {
	env := testEnv()
	cases := []struct {
		src  string
		want bool
	}{
		{"True", true},
		{"False", false},
		{"BUSINESS_USES_PERSONAL_INFORMATION", true},
		{"BUSINESS_OUTSOURCES_PROCESSING", false},
		{"not BUSINESS_OUTSOURCES_PROCESSING", true},
		{"LAW_A26_P7['condition']", true},
		{"LAW_A26_P7[\"legal\"]", false},
	}
	for _, tc := range cases {
		got, err := EvalBool(tc.src, env)
		if err != nil {
			t.Fatalf("EvalBool(%q): %v", tc.src, err)
		}
		if got != tc.want {
			t.Fatalf("EvalBool(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestEvalBoolPrecedence(t *testing.T) {
	env := testEnv()
	// not binds tighter than and, and tighter than or.
	got, err := EvalBool("not RECIEVE_CONSENT or BUSINESS_USES_PERSONAL_INFORMATION and not BUSINESS_OUTSOURCES_PROCESSING", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
	grouped, err := EvalBool("not (RECIEVE_CONSENT or BUSINESS_USES_PERSONAL_INFORMATION)", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if grouped {
		t.Fatalf("expected false")
	}
}

func TestEvalBoolComparisons(t *testing.T) {
	env := testEnv()
	got, err := EvalBool("LAW_A26_P7['legal'] == False", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
	got, err = EvalBool("RECIEVE_CONSENT != LAW_A26_P7['condition']", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if got {
		t.Fatalf("expected false, both are true")
	}
	// Comparison binds tighter than not.
	got, err = EvalBool("not LAW_A26_P7['legal'] == True", env)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !got {
		t.Fatalf("expected true: legal is false, comparison false, negated true")
	}
}

func TestEvalShortCircuitSkipsUndefined(t *testing.T) {
	env := testEnv()
	got, err := EvalBool("RECIEVE_CONSENT or NEVER_DEFINED", env)
	if err != nil {
		t.Fatalf("expected short circuit, got %v", err)
	}
	if !got {
		t.Fatalf("expected true")
	}
	got, err = EvalBool("BUSINESS_OUTSOURCES_PROCESSING and NEVER_DEFINED", env)
	if err != nil {
		t.Fatalf("expected short circuit, got %v", err)
	}
	if got {
		t.Fatalf("expected false")
	}
}

func TestEvalUndefinedVariableFails(t *testing.T) {
	env := testEnv()
	_, err := EvalBool("NEVER_DEFINED", env)
	if err == nil || !strings.Contains(err.Error(), "undefined variable NEVER_DEFINED") {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
	_, err = EvalBool("LAW_MISSING['legal']", env)
	if err == nil || !strings.Contains(err.Error(), "undefined variable LAW_MISSING") {
		t.Fatalf("expected undefined variable error, got %v", err)
	}
}

func TestEvalTypeMismatches(t *testing.T) {
	env := testEnv()
	if _, err := EvalBool("LAW_A26_P7", env); err == nil {
		t.Fatalf("expected state record in boolean context to fail")
	}
	if _, err := EvalBool("RECIEVE_CONSENT['legal']", env); err == nil {
		t.Fatalf("expected subscript on boolean to fail")
	}
	if _, err := EvalBool("LAW_A26_P7['unknown']", env); err == nil {
		t.Fatalf("expected unknown state key to fail")
	}
}

func TestExecAssignsSubscriptAndIdent(t *testing.T) {
	env := testEnv()
	if err := Exec("LAW_A26_P1['condition'] = True", env); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !env.Maps["LAW_A26_P1"]["condition"] {
		t.Fatalf("subscript assignment not applied")
	}
	if err := Exec("NEW_FLAG = RECIEVE_CONSENT and True", env); err != nil {
		t.Fatalf("exec: %v", err)
	}
	if !env.Bools["NEW_FLAG"] {
		t.Fatalf("ident assignment not applied")
	}
	if err := Exec("LAW_MISSING['legal'] = False", env); err == nil {
		t.Fatalf("expected assignment to undefined record to fail")
	}
	if err := Exec("LAW_A26_P1 = True", env); err == nil {
		t.Fatalf("expected overwrite of state record to fail")
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"LAW_A26_P1[",
		"LAW_A26_P1['legal'",
		"'unterminated",
		"True extra",
		"and True",
		"A == ",
		"not",
		"(True",
		"A ! B",
	}
	for _, src := range bad {
		if _, err := Parse(src); err == nil {
			t.Fatalf("Parse(%q): expected error", src)
		}
	}
}

func TestParseStmtRejectsBadTargets(t *testing.T) {
	if _, err := ParseStmt("True = False"); err == nil {
		t.Fatalf("expected literal assignment to fail")
	}
	if _, err := ParseStmt("(A and B) = False"); err == nil {
		t.Fatalf("expected compound assignment target to fail")
	}
}
