package outline_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/outline"
)

func ptr(i int) *int { return &i }

func sampleRows() []outline.Row {
	return []outline.Row{
		{ID: 1, Name: "Quest", Week: 1},
		{ID: 2, Name: "Lab", Week: 1},
		{ID: 3, ParentID: ptr(1), Name: "Abstraction", Week: 1},
		{ID: 4, ParentID: ptr(1), Name: "Lists", Week: 2},
		{ID: 5, ParentID: ptr(2), Name: "Recursion", Week: 3},
		{ID: 6, ParentID: ptr(99), Name: "Orphan", Week: 4},
	}
}

func TestBuild(t *testing.T) {
	res := outline.Build(sampleRows())

	if len(res.Roots) != 2 {
		t.Fatalf("len(Roots) = %d, want 2", len(res.Roots))
	}
	if res.Roots[0].Name != "Quest" || res.Roots[1].Name != "Lab" {
		t.Errorf("roots = %s, %s; want Quest, Lab", res.Roots[0].Name, res.Roots[1].Name)
	}
	if got := len(res.Roots[0].Children); got != 2 {
		t.Errorf("Quest children = %d, want 2", got)
	}
	if res.Roots[0].Children[1].Name != "Lists" {
		t.Errorf("sibling order not preserved: %s", res.Roots[0].Children[1].Name)
	}
	if len(res.Orphans) != 1 || res.Orphans[0].ID != 6 {
		t.Errorf("Orphans = %+v, want row 6", res.Orphans)
	}
	for _, leaf := range outline.Leaves(res.Roots) {
		if leaf.Name == "Orphan" {
			t.Error("orphan row should not appear in the tree")
		}
	}
}

func TestBuild_SelfParentIsOrphan(t *testing.T) {
	res := outline.Build([]outline.Row{{ID: 1, ParentID: ptr(1), Name: "Loop"}})
	if len(res.Roots) != 0 || len(res.Orphans) != 1 {
		t.Errorf("Build() = %d roots, %d orphans; want 0, 1", len(res.Roots), len(res.Orphans))
	}
}

func TestBuild_Empty(t *testing.T) {
	res := outline.Build(nil)
	if len(res.Roots) != 0 || len(res.Orphans) != 0 {
		t.Errorf("Build(nil) = %+v, want empty", res)
	}
}

func TestParseRows(t *testing.T) {
	rows, err := outline.ParseRows([]byte(`[{"id":1,"parentId":null,"name":"Quest","week":1},{"id":2,"parentId":1,"name":"Lists","week":2}]`))
	if err != nil {
		t.Fatalf("ParseRows() error = %v", err)
	}
	if len(rows) != 2 || rows[1].ParentID == nil || *rows[1].ParentID != 1 {
		t.Errorf("ParseRows() = %+v", rows)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"object", `{"id":1}`},
		{"duplicate-id", `[{"id":1,"name":"a"},{"id":1,"name":"b"}]`},
		{"garbage", `nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := outline.ParseRows([]byte(tt.raw))
			var inv *grades.InvalidInputError
			if !errors.As(err, &inv) {
				t.Errorf("ParseRows() error = %v, want *InvalidInputError", err)
			}
		})
	}
}

func TestAnnotate(t *testing.T) {
	res := outline.Build(sampleRows())
	lookup := map[string]outline.Mastery{
		"abstraction": {StudentMastery: 3, ClassMastery: 2},
		"recursion":   {StudentMastery: 1, ClassMastery: 4},
	}

	annotated, misses := outline.Annotate(res.Roots, lookup)

	if len(misses) != 1 || misses[0] != "Lists" {
		t.Errorf("misses = %v, want [Lists]", misses)
	}
	quest := annotated[0]
	if quest.Mastery != nil {
		t.Error("internal node should not be annotated")
	}
	if got := quest.Children[0].Mastery; got == nil || got.StudentMastery != 3 || got.ClassMastery != 2 {
		t.Errorf("Abstraction mastery = %+v, want 3/2", got)
	}
	if got := quest.Children[1].Mastery; got == nil || *got != (outline.Mastery{}) {
		t.Errorf("Lists mastery = %+v, want zero default", got)
	}
	if res.Roots[0].Children[0].Mastery != nil {
		t.Error("Annotate must not mutate the input tree")
	}
}

func TestRollup_MeanOfChildren(t *testing.T) {
	parent := &outline.Node{ID: 1, Name: "Quest", Children: []*outline.Node{
		{ID: 2, Name: "a", Mastery: &outline.Mastery{StudentMastery: 2, ClassMastery: 1}},
		{ID: 3, Name: "b", Mastery: &outline.Mastery{StudentMastery: 3, ClassMastery: 1}},
		{ID: 4, Name: "c", Mastery: &outline.Mastery{StudentMastery: 4, ClassMastery: 2}},
	}}

	got, value := outline.Rollup(parent)
	if value != 3 {
		t.Errorf("Rollup() = %d, want 3", value)
	}
	if got.Mastery == nil || got.Mastery.StudentMastery != 3 {
		t.Errorf("parent mastery = %+v, want student 3", got.Mastery)
	}
	if got.Mastery.ClassMastery != 1 {
		t.Errorf("parent class mastery = %d, want round(4/3) = 1", got.Mastery.ClassMastery)
	}
	if parent.Mastery != nil {
		t.Error("Rollup must not mutate the input tree")
	}
}

func TestRollup_Nested(t *testing.T) {
	root := &outline.Node{ID: 1, Name: "root", Children: []*outline.Node{
		{ID: 2, Name: "mid", Children: []*outline.Node{
			{ID: 4, Name: "x", Mastery: &outline.Mastery{StudentMastery: 4}},
			{ID: 5, Name: "y", Mastery: &outline.Mastery{StudentMastery: 1}},
		}},
		{ID: 3, Name: "z"},
	}}

	got, value := outline.Rollup(root)
	// mid = round(2.5) = 3; root = round((3 + 0) / 2) = 2
	if got.Children[0].StudentMastery() != 3 {
		t.Errorf("mid = %d, want 3", got.Children[0].StudentMastery())
	}
	if value != 2 {
		t.Errorf("root = %d, want 2", value)
	}
}

func TestLeaves_Order(t *testing.T) {
	res := outline.Build(sampleRows())
	var got []string
	for _, l := range outline.Leaves(res.Roots) {
		got = append(got, l.Name)
	}
	want := []string{"Abstraction", "Lists", "Recursion"}
	if len(got) != len(want) {
		t.Fatalf("Leaves() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Leaves()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
