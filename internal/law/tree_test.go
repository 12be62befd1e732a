// File path: internal/law/tree_test.go
package law

import (
	"errors"
	"strings"
	"testing"
)

func ruleRecords() []Record {
	return []Record{
		{ID: "제26조", Class: "조", VarName: "LAW_A26"},
		{ID: "제26조 제1항", Class: "항", Parent: "제26조", VarName: "LAW_A26_P1"},
		{ID: "제26조 제1항 제1호", Class: "호", Parent: "제26조 제1항", VarName: "LAW_A26_P1_S1"},
		{ID: "제26조 제7항", Class: "항", Parent: "제26조", VarName: "LAW_A26_P7"},
		{ID: "제21조", Class: "조", VarName: "LAW_A21"},
	}
}

func TestBuildTreeAnchorsArticlesAtRoot(t *testing.T) {
	tree, err := BuildTree(ruleRecords())
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	roots := tree.RootIDs()
	if len(roots) != 2 || roots[0] != "제26조" || roots[1] != "제21조" {
		t.Fatalf("unexpected roots: %v", roots)
	}
	kids := tree.ChildIDs("제26조")
	if len(kids) != 2 || kids[0] != "제26조 제1항" || kids[1] != "제26조 제7항" {
		t.Fatalf("unexpected children: %v", kids)
	}
}

func TestBuildTreeRejectsDuplicateID(t *testing.T) {
	records := ruleRecords()
	records = append(records, Record{ID: "제26조", Class: "조", VarName: "LAW_A26_DUP"})
	tree, err := BuildTree(records)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if tree != nil {
		t.Fatalf("expected no tree on duplicate id")
	}
}

func TestBuildTreeRejectsMissingID(t *testing.T) {
	records := []Record{{Class: "조", VarName: "LAW_A1"}}
	if _, err := BuildTree(records); !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestBuildTreeAttachesOrphansToRoot(t *testing.T) {
	records := append(ruleRecords(), Record{ID: "제99조 제1항", Class: "항", Parent: "제98조", VarName: "LAW_A99_P1"})
	tree, err := BuildTree(records)
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	roots := tree.RootIDs()
	if len(roots) != 3 || roots[2] != "제99조 제1항" {
		t.Fatalf("expected orphan at root, got %v", roots)
	}
}

func TestWalkPreOrderVisitsDepthFirst(t *testing.T) {
	tree, err := BuildTree(ruleRecords())
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	var visited []string
	var depths []int
	err = tree.WalkPreOrder(func(rec Record, depth int) error {
		visited = append(visited, rec.ID)
		depths = append(depths, depth)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	want := []string{"제26조", "제26조 제1항", "제26조 제1항 제1호", "제26조 제7항", "제21조"}
	if strings.Join(visited, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected walk order: %v", visited)
	}
	if depths[0] != 0 || depths[2] != 2 || depths[4] != 0 {
		t.Fatalf("unexpected depths: %v", depths)
	}
}

func TestRenderDrawsConnectors(t *testing.T) {
	tree, err := BuildTree(ruleRecords())
	if err != nil {
		t.Fatalf("build tree: %v", err)
	}
	got := tree.Render()
	want := strings.Join([]string{
		"Tree layout:",
		"ROOT",
		"   ├─ 제26조",
		"   │  ├─ 제26조 제1항",
		"   │  │  └─ 제26조 제1항 제1호",
		"   │  └─ 제26조 제7항",
		"   └─ 제21조",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected layout:\n got:\n%s\nwant:\n%s", got, want)
	}
}
