package replaces

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SubLesson is the position of a lesson slot within a day, a pair of
// sub-lessons makes up one lesson.
type SubLesson int

const (
	SubLessonNone SubLesson = 0
	SubLessonMax  SubLesson = 10
)

var ErrInvalidSubLesson = errors.New("invalid sub-lesson number")

// ParseSubLesson maps a cell's text to a SubLesson, an empty cell is SubLessonNone.
func ParseSubLesson(text string) (SubLesson, error) {
	if text == "" {
		return SubLessonNone, nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return SubLessonNone, fmt.Errorf("%w: %w", ErrInvalidSubLesson, err)
	}
	if n < 1 || SubLesson(n) > SubLessonMax {
		return SubLessonNone, fmt.Errorf("%w: %d is out of range", ErrInvalidSubLesson, n)
	}
	return SubLesson(n), nil
}

func (s SubLesson) String() string {
	if s == SubLessonNone {
		return MissingValue
	}
	return strconv.Itoa(int(s))
}

// Replace is a single substitution, one row of the replacements table.
type Replace struct {
	Lesson          SubLesson
	ReplacedSubject string
	Teacher         string
	Subject         string
	// Classroom is nil when the source row had no classroom column.
	Classroom *string
}

var ErrRowShape = errors.New("unexpected row shape")

// ReplaceFromCells decodes a Replace from the positional texts of a row's cells.
// A row of 4 cells has no classroom, cells after the 5th are ignored.
func ReplaceFromCells(cells []string) (Replace, error) {
	if len(cells) < 4 {
		return Replace{}, fmt.Errorf("%w: expected at least 4 cells, got %d", ErrRowShape, len(cells))
	}

	lesson, err := ParseSubLesson(cells[0])
	if err != nil {
		return Replace{}, err
	}

	r := Replace{
		Lesson:          lesson,
		ReplacedSubject: cells[1],
		Teacher:         cells[2],
		Subject:         cells[3],
	}
	// an empty classroom cell is the same as a missing one
	if len(cells) >= 5 && strings.TrimSpace(cells[4]) != "" {
		classroom := cells[4]
		r.Classroom = &classroom
	}
	return r, nil
}

type GroupReplaces struct {
	Group    int
	Replaces []Replace
}

// Replaces is the parsed replacements page for a single day.
type Replaces struct {
	Header string
	// Degraded is set when at least one row or section did not have the expected shape.
	Degraded bool

	groups map[int]*GroupReplaces
	order  []int
}

func NewReplaces(header string) *Replaces {
	return &Replaces{
		Header: header,
		groups: map[int]*GroupReplaces{},
	}
}

// SetGroup stores a group, replacing any group with the same number.
// A replaced group keeps the position of the first occurrence.
func (r *Replaces) SetGroup(group *GroupReplaces) {
	if r.groups == nil {
		r.groups = map[int]*GroupReplaces{}
	}
	_, exists := r.groups[group.Group]
	if !exists {
		r.order = append(r.order, group.Group)
	}
	r.groups[group.Group] = group
}

func (r *Replaces) Group(group int) (*GroupReplaces, bool) {
	g, ok := r.groups[group]
	return g, ok
}

// Groups returns the groups in the order they first appeared in the document.
func (r *Replaces) Groups() []*GroupReplaces {
	out := make([]*GroupReplaces, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.groups[id])
	}
	return out
}

func (r *Replaces) GroupNumbers() []int {
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

// Clone returns a deep copy of the document.
func (r *Replaces) Clone() *Replaces {
	out := NewReplaces(r.Header)
	out.Degraded = r.Degraded
	for _, g := range r.Groups() {
		replaces := make([]Replace, len(g.Replaces))
		for i, rep := range g.Replaces {
			replaces[i] = rep
			if rep.Classroom != nil {
				classroom := *rep.Classroom
				replaces[i].Classroom = &classroom
			}
		}
		out.SetGroup(&GroupReplaces{Group: g.Group, Replaces: replaces})
	}
	return out
}
