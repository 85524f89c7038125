// Package course loads the course settings shown on every report: the course
// name and term, the mastery level names and the current week.
package course

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/mastery"
)

// Course is the contents of the course YAML file.
type Course struct {
	Name          string             `yaml:"name"`
	Term          string             `yaml:"term"`
	StudentLevels []string           `yaml:"student_levels"`
	CurrentWeek   int                `yaml:"current_week"`
	LetterBins    []grades.LetterBin `yaml:"letter_bins"`
}

// Default returns the built-in course settings.
func Default() Course {
	return Course{
		Name: "CS10",
		Term: "Fall 2024",
		StudentLevels: []string{
			"First Steps",
			"Needs Practice",
			"In Progress",
			"Almost There",
			"Mastered",
		},
		CurrentWeek: 1,
	}
}

// Load reads a course file. Fields missing from the file keep their
// defaults. An empty path returns Default.
func Load(path string) (Course, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Course{}, fmt.Errorf("reading course file: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Course{}, &grades.InvalidInputError{Field: path, Reason: err.Error()}
	}
	if err := c.Validate(); err != nil {
		return Course{}, err
	}

	slog.Info("course loaded", "name", c.Name, "term", c.Term, "levels", len(c.StudentLevels))
	return c, nil
}

// Validate checks that the level names can form a mastery scale.
func (c Course) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &grades.InvalidInputError{Field: "name", Reason: "must not be empty"}
	}
	if c.CurrentWeek < 0 {
		return &grades.InvalidInputError{Field: "current_week", Reason: "must not be negative"}
	}
	_, err := mastery.NewScale(c.StudentLevels)
	return err
}

// Scale builds the mastery scale for the course levels.
func (c Course) Scale() (mastery.Scale, error) {
	return mastery.NewScale(c.StudentLevels)
}
