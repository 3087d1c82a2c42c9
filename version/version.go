// Package version implements dotted numeric version strings of variable arity,
// including the date-derived shapes used for product versions (D.M.Y.PATCH,
// Y.M.D.PATCH, D.M.Y and Y.M.D).
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalid is returned when a version contains a component that is not a
// non-negative integer.
var ErrInvalid = errors.New("invalid version")

// Kind classifies the shape of a version string.
type Kind uint8

const (
	Other Kind = iota
	MajorMinorPatch
	DateWithPatch
	Date
)

func (k Kind) String() string {
	switch k {
	case MajorMinorPatch:
		return "major.minor.patch"
	case DateWithPatch:
		return "date+patch"
	case Date:
		return "date"
	default:
		return "other"
	}
}

// dayFirstLimit is the largest first component still read as a day of month.
const dayFirstLimit = 31

// minYear keeps small triples such as 1.4.2 from being read as dates.
const minYear = 1000

type component struct {
	text  string
	value int
}

func parse(v string) ([]component, error) {
	if v == "" {
		return nil, fmt.Errorf("%w: empty string", ErrInvalid)
	}
	parts := strings.Split(v, ".")
	comps := make([]component, len(parts))
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return nil, fmt.Errorf("%w: component %d of %q is %q", ErrInvalid, i, v, p)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: component %d of %q: %v", ErrInvalid, i, v, err)
		}
		comps[i] = component{text: p, value: n}
	}
	return comps, nil
}

func join(comps []component) string {
	parts := make([]string, len(comps))
	for i, c := range comps {
		parts[i] = c.text
	}
	return strings.Join(parts, ".")
}

// Compare orders two versions. Components are zero-padded to the widest
// component of either operand and compared over the shared prefix; when the
// prefix is equal the version with fewer components is the lesser one.
func Compare(a, b string) (int, error) {
	ca, err := parse(a)
	if err != nil {
		return 0, err
	}
	cb, err := parse(b)
	if err != nil {
		return 0, err
	}

	width := 0
	for _, c := range append(append([]component{}, ca...), cb...) {
		if w := len(strconv.Itoa(c.value)); w > width {
			width = w
		}
	}

	n := min(len(ca), len(cb))
	if r := strings.Compare(padded(ca[:n], width), padded(cb[:n], width)); r != 0 {
		return r, nil
	}

	switch {
	case len(ca) < len(cb):
		return -1, nil
	case len(ca) > len(cb):
		return 1, nil
	}
	return 0, nil
}

func padded(comps []component, width int) string {
	var sb strings.Builder
	for _, c := range comps {
		fmt.Fprintf(&sb, "%0*d", width, c.value)
	}
	return sb.String()
}

// Digit returns the integer value of the component at index.
func Digit(v string, index int) (int, error) {
	comps, err := parse(v)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(comps) {
		return 0, fmt.Errorf("component index %d out of range for %q", index, v)
	}
	return comps[index].value, nil
}

// SetDigit replaces the component at index and returns the new version. All
// other components are kept verbatim; the replaced component keeps its
// zero-padding width.
func SetDigit(v string, index, value int) (string, error) {
	if value < 0 {
		return "", fmt.Errorf("%w: negative component %d", ErrInvalid, value)
	}
	comps, err := parse(v)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(comps) {
		return "", fmt.Errorf("component index %d out of range for %q", index, v)
	}
	comps[index] = component{
		text:  fmt.Sprintf("%0*d", len(comps[index].text), value),
		value: value,
	}
	return join(comps), nil
}

// Classify reports the shape of v.
func Classify(v string) Kind {
	comps, err := parse(v)
	if err != nil {
		return Other
	}
	switch len(comps) {
	case 4:
		if _, ok := dateOf(comps); ok {
			return DateWithPatch
		}
	case 3:
		if _, ok := dateOf(comps); ok {
			return Date
		}
		return MajorMinorPatch
	}
	return Other
}

// dateOf interprets the first three components as a calendar date.
func dateOf(comps []component) (time.Time, bool) {
	if len(comps) < 3 {
		return time.Time{}, false
	}
	var year, month, day int
	if comps[0].value <= dayFirstLimit {
		day, month, year = comps[0].value, comps[1].value, comps[2].value
	} else {
		year, month, day = comps[0].value, comps[1].value, comps[2].value
	}
	if year < minYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// CreateDate rewrites the first three components of v from date. Day-first or
// year-first ordering is taken from the magnitude of the existing first
// component.
func CreateDate(v string, date time.Time) (string, error) {
	comps, err := parse(v)
	if err != nil {
		return "", err
	}
	if len(comps) < 3 {
		return "", fmt.Errorf("%w: %q has fewer than three components", ErrInvalid, v)
	}

	values := [3]int{date.Year(), int(date.Month()), date.Day()}
	if comps[0].value <= dayFirstLimit {
		values = [3]int{date.Day(), int(date.Month()), date.Year()}
	}
	for i, n := range values {
		comps[i] = component{text: fmt.Sprintf("%0*d", len(comps[i].text), n), value: n}
	}
	return join(comps), nil
}

// CreateDateWithPatch is CreateDate followed by setting the trailing patch
// component, when v has one.
func CreateDateWithPatch(v string, date time.Time, patch int) (string, error) {
	out, err := CreateDate(v, date)
	if err != nil {
		return "", err
	}
	if strings.Count(out, ".") < 3 {
		return out, nil
	}
	return SetDigit(out, 3, patch)
}

// Bump returns the version that follows v on the given day.
func Bump(v string, today time.Time) (string, error) {
	switch Classify(v) {
	case MajorMinorPatch:
		patch, err := Digit(v, 2)
		if err != nil {
			return "", err
		}
		return SetDigit(v, 2, patch+1)
	case DateWithPatch:
		comps, _ := parse(v)
		current, _ := dateOf(comps)
		patch := 0
		if sameDay(current, today) {
			patch = comps[3].value + 1
		}
		return CreateDateWithPatch(v, today, patch)
	case Date:
		return CreateDate(v, today)
	}
	return "", fmt.Errorf("%w: cannot bump unclassified version %q", ErrInvalid, v)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// PatchValue is the patch number embedded in generated build metadata. Plain
// major.minor.patch versions use component 2, date+patch versions use
// component 3 and everything else falls back to the bundle counter.
func PatchValue(v string, bundle int) int {
	var index int
	switch Classify(v) {
	case MajorMinorPatch:
		index = 2
	case DateWithPatch:
		index = 3
	default:
		return bundle
	}
	n, err := Digit(v, index)
	if err != nil {
		return bundle
	}
	return n
}
