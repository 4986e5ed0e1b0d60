package replaces

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MissingValue is rendered in place of an absent lesson number or classroom.
	MissingValue = "-"
	// MissingGroup is the rendering of a group that is not present in a document.
	MissingGroup = "<missing>"
)

var ErrUnsupportedType = errors.New("unsupported type")

// Render renders a Replace, *GroupReplaces or *Replaces.
func Render(value any) (string, error) {
	switch v := value.(type) {
	case *Replaces:
		if v == nil {
			return "", fmt.Errorf("%w: nil *Replaces", ErrUnsupportedType)
		}
		return RenderReplaces(v), nil
	case *GroupReplaces:
		return RenderGroup(v), nil
	case GroupReplaces:
		return RenderGroup(&v), nil
	case Replace:
		return RenderReplace(v), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
}

func RenderReplace(r Replace) string {
	classroom := MissingValue
	if r.Classroom != nil {
		classroom = *r.Classroom
	}
	return fmt.Sprintf(
		"%s\t%s -> (%s - %s - %s)",
		r.Lesson, r.ReplacedSubject, r.Teacher, r.Subject, classroom,
	)
}

// RenderGroup renders the group number followed by one line per replacement,
// a nil group renders as MissingGroup.
func RenderGroup(g *GroupReplaces) string {
	if g == nil {
		return MissingGroup
	}
	var out strings.Builder
	fmt.Fprintf(&out, "%d\n", g.Group)
	for _, r := range g.Replaces {
		out.WriteString(RenderReplace(r))
		out.WriteByte('\n')
	}
	return out.String()
}

func RenderReplaces(r *Replaces) string {
	var out strings.Builder
	out.WriteString(r.Header)
	out.WriteByte('\n')
	for _, g := range r.Groups() {
		out.WriteString(RenderGroup(g))
	}
	return out.String()
}
