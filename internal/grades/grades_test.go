package grades_test

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/p-n-ai/gradeview/internal/grades"
)

func s(v float64) grades.Score { return grades.NewScore(v) }

func TestScore_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValue float64
		wantValid bool
	}{
		{"number", `12.5`, 12.5, true},
		{"numeric-string", `"7"`, 7, true},
		{"padded-string", `" 3 "`, 3, true},
		{"empty-string", `""`, 0, false},
		{"null", `null`, 0, false},
		{"text", `"excused"`, 0, false},
		{"nan-string", `"NaN"`, 0, false},
		{"bool", `true`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got grades.Score
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got.Valid != tt.wantValid || got.Value != tt.wantValue {
				t.Errorf("Unmarshal(%s) = %+v, want {Value:%v Valid:%v}", tt.raw, got, tt.wantValue, tt.wantValid)
			}
		})
	}
}

func TestScore_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(map[string]grades.Score{"a": s(4), "b": {}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `{"a":4,"b":""}` {
		t.Errorf("Marshal() = %s, want {\"a\":4,\"b\":\"\"}", b)
	}
}

func TestAggregateByTopic_MergesAcrossCategories(t *testing.T) {
	rec := grades.ScoreRecord{
		"Labs":    {"Recursion": s(4), "Lists": s(2)},
		"Quests":  {"recursion ": s(6), "Loops": {}},
		"Midterm": {"Lists": s(10)},
	}

	got := grades.AggregateByTopic(rec)
	want := grades.TopicPoints{"recursion": 10, "lists": 12, "loops": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AggregateByTopic() = %v, want %v", got, want)
	}

	if v, ok := got.Get("  RECURSION"); !ok || v != 10 {
		t.Errorf("Get(RECURSION) = %v, %v; want 10, true", v, ok)
	}
}

func TestAggregateByTopic_Idempotent(t *testing.T) {
	rec := grades.ScoreRecord{
		"A": {"x": s(0.1), "y": s(0.2)},
		"B": {"x": s(0.3), "z": s(1e-9)},
		"C": {"x": s(0.7), "y": s(0.05)},
	}

	first := grades.AggregateByTopic(rec)
	for range 20 {
		if got := grades.AggregateByTopic(rec); !reflect.DeepEqual(got, first) {
			t.Fatalf("AggregateByTopic() = %v, want %v on repeat call", got, first)
		}
	}
}

func TestAggregateByTopic_Empty(t *testing.T) {
	if got := grades.AggregateByTopic(nil); len(got) != 0 {
		t.Errorf("AggregateByTopic(nil) = %v, want empty", got)
	}
}

func TestTotals(t *testing.T) {
	rec := grades.ScoreRecord{
		"Labs":   {"a": s(1), "b": s(2), "c": {}},
		"Quests": {"d": s(10)},
	}

	if got := grades.CategoryTotal(rec, "Labs"); got != 3 {
		t.Errorf("CategoryTotal(Labs) = %v, want 3", got)
	}
	if got := grades.CategoryTotal(rec, "Missing"); got != 0 {
		t.Errorf("CategoryTotal(Missing) = %v, want 0", got)
	}
	if got := grades.Total(rec); got != 13 {
		t.Errorf("Total() = %v, want 13", got)
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"Labs":{"Lists":"4","Loops":3,"Trees":"","Maps":null}}`, false},
		{"empty-object", `{}`, false},
		{"array", `[1,2,3]`, true},
		{"category-not-object", `{"Labs":5}`, true},
		{"nested-too-deep", `{"Labs":{"Lists":{"x":1}}}`, true},
		{"not-json", `{"Labs":`, true},
		{"null", `null`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := grades.ParseRecord([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var inv *grades.InvalidInputError
				if !errors.As(err, &inv) {
					t.Errorf("ParseRecord() error type = %T, want *InvalidInputError", err)
				}
				return
			}
			if rec == nil {
				t.Error("ParseRecord() returned nil record")
			}
		})
	}
}

func TestParseRecord_CoercesCells(t *testing.T) {
	rec, err := grades.ParseRecord([]byte(`{"Labs":{"Lists":"4","Loops":3,"Trees":""}}`))
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if got := grades.CategoryTotal(rec, "Labs"); got != 7 {
		t.Errorf("CategoryTotal(Labs) = %v, want 7", got)
	}
	if rec["Labs"]["Trees"].Valid {
		t.Error("blank cell should decode as invalid score")
	}
}

func TestWithMaxAndSummarize(t *testing.T) {
	student := grades.ScoreRecord{
		"Labs":   {"Lists": s(3), "Loops": s(4), "Trees": {}},
		"Quests": {"Q1": s(5)},
		"Bonus":  {"Extra": s(2)},
	}
	maxRec := grades.ScoreRecord{
		"Labs":   {"Lists": s(4), "Loops": s(4), "Trees": s(4)},
		"Quests": {"Q1": s(10)},
	}

	b := grades.WithMax(student, maxRec)
	if got := b["Labs"]["Lists"]; got.Student.Float() != 3 || got.Max.Float() != 4 {
		t.Errorf("WithMax Labs/Lists = %+v, want 3/4", got)
	}
	if b["Bonus"]["Extra"].Max.Valid {
		t.Error("WithMax should leave missing max invalid")
	}

	sum := grades.Summarize(b)
	if _, ok := sum.Categories["Bonus"]; ok {
		t.Error("Summarize should drop a category with no positive max")
	}
	labs := sum.Categories["Labs"]
	if labs.Count != 3 || labs.Total != 7 || labs.MaxPoints != 12 {
		t.Errorf("Labs summary = %+v, want count 3 total 7 max 12", labs)
	}
	if sum.TotalScore != 12 || sum.TotalMaxPoints != 22 {
		t.Errorf("totals = %v/%v, want 12/22", sum.TotalScore, sum.TotalMaxPoints)
	}
	if math.Abs(sum.OverallPercentage-12.0/22*100) > 1e-9 {
		t.Errorf("OverallPercentage = %v", sum.OverallPercentage)
	}
	if len(sum.Assignments) != 4 {
		t.Errorf("len(Assignments) = %d, want 4", len(sum.Assignments))
	}
}

func TestProject(t *testing.T) {
	maxRec := grades.ScoreRecord{
		"Labs":  {"L1": s(10), "L2": s(10)},
		"Exams": {"Final": s(80)},
	}

	tests := []struct {
		name    string
		student grades.ScoreRecord
		want    grades.Projection
	}{
		{
			name:    "half-graded",
			student: grades.ScoreRecord{"Labs": {"L1": s(8), "L2": {}}, "Exams": {"Final": {}}},
			want:    grades.Projection{Zeros: 8, Pace: 80, Perfect: 98},
		},
		{
			name:    "nothing-graded",
			student: grades.ScoreRecord{},
			want:    grades.Projection{Zeros: 0, Pace: 0, Perfect: 100},
		},
		{
			name:    "all-graded",
			student: grades.ScoreRecord{"Labs": {"L1": s(10), "L2": s(5)}, "Exams": {"Final": s(60)}},
			want:    grades.Projection{Zeros: 75, Pace: 75, Perfect: 75},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := grades.Project(tt.student, maxRec); got != tt.want {
				t.Errorf("Project() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLetterRanges(t *testing.T) {
	ranges := grades.Ranges([]grades.LetterBin{
		{Letter: "B", Points: 80},
		{Letter: "A", Points: 100},
		{Letter: "", Points: 50},
		{Letter: "C", Points: 60},
	})

	want := []grades.LetterRange{
		{Letter: "A", Lower: 80, Upper: 100},
		{Letter: "B", Lower: 60, Upper: 80},
		{Letter: "C", Lower: 0, Upper: 60},
	}
	if !reflect.DeepEqual(ranges, want) {
		t.Fatalf("Ranges() = %+v, want %+v", ranges, want)
	}

	tests := []struct {
		total float64
		want  string
	}{
		{100, "A"},
		{80, "A"},
		{79.5, "B"},
		{10, "C"},
		{-5, "C"},
	}
	for _, tt := range tests {
		if got := grades.LetterFor(ranges, tt.total); got != tt.want {
			t.Errorf("LetterFor(%v) = %q, want %q", tt.total, got, tt.want)
		}
	}

	if got := grades.LetterFor(nil, 50); got != "" {
		t.Errorf("LetterFor(nil) = %q, want empty", got)
	}
	if got := grades.Ranges(grades.DefaultLetterBins); got[0].Letter != "A+" || got[len(got)-1].Letter != "F" {
		t.Errorf("default ranges order = %s..%s, want A+..F", got[0].Letter, got[len(got)-1].Letter)
	}
}
