// Package outline assembles the category -> topic hierarchy behind the
// concept map, attaches per-topic mastery to its leaves and rolls mastery up
// to every ancestor.
package outline

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/names"
)

// Row is one flat outline record as stored by the gradebook sync.
type Row struct {
	ID       int    `json:"id"`
	ParentID *int   `json:"parentId"`
	Name     string `json:"name"`
	Week     int    `json:"week"`
}

// Mastery is the mastery carried by a node.
type Mastery struct {
	StudentMastery int `json:"student_mastery"`
	ClassMastery   int `json:"class_mastery"`
}

// Node is an outline tree node. Mastery is nil until annotated or rolled up.
type Node struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Week     int      `json:"week"`
	Mastery  *Mastery `json:"mastery,omitempty"`
	Children []*Node  `json:"children"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// StudentMastery returns the node's student mastery, 0 when unset.
func (n *Node) StudentMastery() int {
	if n.Mastery == nil {
		return 0
	}
	return n.Mastery.StudentMastery
}

// Result is a built outline. Orphans are rows whose parent id did not match
// any row; they are not part of the tree.
type Result struct {
	Roots   []*Node
	Orphans []Row
}

// ParseRows decodes the stored outline. Duplicate ids are a structural
// error since parent references would be ambiguous.
func ParseRows(data []byte) ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &grades.InvalidInputError{Field: "outline", Reason: err.Error()}
	}
	seen := make(map[int]bool, len(rows))
	for i, r := range rows {
		if seen[r.ID] {
			return nil, &grades.InvalidInputError{
				Field:  fmt.Sprintf("outline[%d].id", i),
				Reason: fmt.Sprintf("duplicate id %d", r.ID),
			}
		}
		seen[r.ID] = true
	}
	return rows, nil
}

// Build indexes rows by id and links each row under its parent, preserving
// row order among siblings. Rows without a parent become roots.
func Build(rows []Row) Result {
	byID := make(map[int]*Node, len(rows))
	for _, r := range rows {
		byID[r.ID] = &Node{ID: r.ID, Name: r.Name, Week: r.Week, Children: []*Node{}}
	}

	var res Result
	for _, r := range rows {
		n := byID[r.ID]
		if r.ParentID == nil {
			res.Roots = append(res.Roots, n)
			continue
		}
		parent, ok := byID[*r.ParentID]
		if !ok || parent == n {
			res.Orphans = append(res.Orphans, r)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return res
}

// Annotate returns a deep copy of the forest in which every leaf carries the
// mastery found under its canonical name in lookup. Leaves with no entry get
// the zero mastery and their names are returned as misses. Internal nodes
// are copied without mastery.
func Annotate(roots []*Node, lookup map[string]Mastery) ([]*Node, []string) {
	var misses []string
	out := make([]*Node, 0, len(roots))
	for _, r := range roots {
		out = append(out, annotate(r, lookup, &misses))
	}
	return out, misses
}

func annotate(n *Node, lookup map[string]Mastery, misses *[]string) *Node {
	cp := &Node{ID: n.ID, Name: n.Name, Week: n.Week, Children: make([]*Node, 0, len(n.Children))}
	if n.IsLeaf() {
		m, ok := lookup[names.Canonical(n.Name)]
		if !ok {
			*misses = append(*misses, n.Name)
		}
		cp.Mastery = &m
		return cp
	}
	for _, c := range n.Children {
		cp.Children = append(cp.Children, annotate(c, lookup, misses))
	}
	return cp
}

// Rollup returns a copy of n in which every internal node's mastery is the
// rounded mean of its immediate children's rolled-up mastery, together with
// n's resulting student mastery. Leaves keep their own mastery (0 if unset).
func Rollup(n *Node) (*Node, int) {
	cp := &Node{ID: n.ID, Name: n.Name, Week: n.Week, Children: make([]*Node, 0, len(n.Children))}
	if n.IsLeaf() {
		if n.Mastery != nil {
			m := *n.Mastery
			cp.Mastery = &m
		}
		return cp, n.StudentMastery()
	}

	var studentSum, classSum int
	for _, c := range n.Children {
		rc, sm := Rollup(c)
		cp.Children = append(cp.Children, rc)
		studentSum += sm
		if rc.Mastery != nil {
			classSum += rc.Mastery.ClassMastery
		}
	}
	count := float64(len(n.Children))
	cp.Mastery = &Mastery{
		StudentMastery: int(math.Round(float64(studentSum) / count)),
		ClassMastery:   int(math.Round(float64(classSum) / count)),
	}
	return cp, cp.Mastery.StudentMastery
}

// RollupAll applies Rollup to every root.
func RollupAll(roots []*Node) []*Node {
	out := make([]*Node, 0, len(roots))
	for _, r := range roots {
		rr, _ := Rollup(r)
		out = append(out, rr)
	}
	return out
}

// Leaves returns the leaves of the forest in depth-first, sibling order.
func Leaves(roots []*Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}
