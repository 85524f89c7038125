package gradebook

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/outline"
)

// categoryMarker fills the email column of header rows in the grades sheet.
const categoryMarker = "CATEGORY"

// Layout locates the gradebook inside a workbook. Rows and columns are
// 1-based, as in the spreadsheet UI.
type Layout struct {
	Sheet        string
	ConceptRow   int
	CategoryRow  int
	MaxPointsRow int
	NameColumn   int
	EmailColumn  int
	FirstColumn  int

	BinsSheet     string
	BinsStartRow  int
	BinsEndRow    int
	BinsLetterCol int
	BinsPointsCol int
}

// DefaultLayout matches the course spreadsheet: concept names in row 1,
// categories in row 2, max points in row 3, students from row 4 with name and
// email in columns A and B.
func DefaultLayout() Layout {
	return Layout{
		ConceptRow:    1,
		CategoryRow:   2,
		MaxPointsRow:  3,
		NameColumn:    1,
		EmailColumn:   2,
		FirstColumn:   3,
		BinsLetterCol: 1,
		BinsPointsCol: 2,
	}
}

// ImportWorkbook opens an .xlsx file and reads it with ReadWorkbook.
func ImportWorkbook(path string, layout Layout) (Snapshot, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return ReadWorkbook(f, layout)
}

// ReadWorkbook builds a snapshot from the grades sheet and, when configured,
// the letter-bins sheet. The outline gets one root per category in
// first-seen order and one child per concept column.
func ReadWorkbook(f *excelize.File, layout Layout) (Snapshot, error) {
	sheet := layout.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	header := max(layout.ConceptRow, layout.CategoryRow, layout.MaxPointsRow)
	if header == 0 || len(rows) < header {
		return Snapshot{}, &grades.InvalidInputError{
			Field:  sheet,
			Reason: fmt.Sprintf("sheet has %d rows, header needs %d", len(rows), header),
		}
	}

	concepts := row(rows, layout.ConceptRow)
	categories := row(rows, layout.CategoryRow)
	maxPoints := row(rows, layout.MaxPointsRow)

	type column struct {
		idx      int
		concept  string
		category string
	}
	var cols []column
	var pairs [][2]string
	for i := layout.FirstColumn - 1; i < len(concepts); i++ {
		concept := strings.TrimSpace(cell(concepts, i))
		if concept == "" {
			continue
		}
		category := strings.TrimSpace(cell(categories, i))
		cols = append(cols, column{idx: i, concept: concept, category: category})
		pairs = append(pairs, [2]string{category, concept})
	}

	snap := Snapshot{
		Max:      grades.ScoreRecord{},
		Records:  map[string]grades.ScoreRecord{},
		SyncedAt: time.Now().UTC(),
	}
	for _, c := range cols {
		put(snap.Max, c.category, c.concept, grades.ParseScore(cell(maxPoints, c.idx)))
	}

	for r := header; r < len(rows); r++ {
		line := rows[r]
		email := strings.TrimSpace(cell(line, layout.EmailColumn-1))
		if email == "" || email == categoryMarker {
			continue
		}
		name := strings.TrimSpace(cell(line, layout.NameColumn-1))
		if name == "" {
			name = "Unknown"
			slog.Warn("student row without a name", "row", r+1, "email", email)
		}

		rec := grades.ScoreRecord{}
		for _, c := range cols {
			put(rec, c.category, c.concept, grades.ParseScore(cell(line, c.idx)))
		}
		snap.Students = append(snap.Students, Student{Name: name, Email: email})
		snap.Records[email] = rec
	}

	snap.Outline = outlineRows(pairs)

	if layout.BinsSheet != "" {
		bins, err := readBins(f, layout)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Bins = bins
	}
	return snap, nil
}

// outlineRows turns (category, concept) pairs into flat outline rows.
func outlineRows(pairs [][2]string) []outline.Row {
	var roots, children []outline.Row
	rootIDs := map[string]int{}
	nextID := 1

	for _, p := range pairs {
		if _, ok := rootIDs[p[0]]; ok {
			continue
		}
		rootIDs[p[0]] = nextID
		roots = append(roots, outline.Row{ID: nextID, Name: p[0], Week: 1})
		nextID++
	}
	for i, p := range pairs {
		parent := rootIDs[p[0]]
		children = append(children, outline.Row{ID: nextID, ParentID: &parent, Name: p[1], Week: i + 1})
		nextID++
	}
	return append(roots, children...)
}

func readBins(f *excelize.File, layout Layout) ([]grades.LetterBin, error) {
	rows, err := f.GetRows(layout.BinsSheet)
	if err != nil {
		return nil, fmt.Errorf("read bins sheet %q: %w", layout.BinsSheet, err)
	}
	end := layout.BinsEndRow
	if end == 0 || end > len(rows) {
		end = len(rows)
	}
	start := max(layout.BinsStartRow, 1)

	var bins []grades.LetterBin
	for r := start; r <= end; r++ {
		line := rows[r-1]
		letter := strings.TrimSpace(cell(line, layout.BinsLetterCol-1))
		points := grades.ParseScore(cell(line, layout.BinsPointsCol-1))
		if letter == "" || !points.Valid {
			continue
		}
		bins = append(bins, grades.LetterBin{Letter: letter, Points: points.Value})
	}
	return bins, nil
}

func put(rec grades.ScoreRecord, category, concept string, s grades.Score) {
	topics, ok := rec[category]
	if !ok {
		topics = map[string]grades.Score{}
		rec[category] = topics
	}
	topics[concept] = s
}

func row(rows [][]string, n int) []string {
	if n < 1 || n > len(rows) {
		return nil
	}
	return rows[n-1]
}

func cell(line []string, i int) string {
	if i < 0 || i >= len(line) {
		return ""
	}
	return line[i]
}
