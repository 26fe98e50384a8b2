package growth

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"vdypcore/pkg/domain"
)

// Control file tags.
const (
	TagTitle                 = 1
	TagInput1                = 11
	TagInput2                = 12
	TagInput3                = 13
	TagOutput1               = 15
	TagOutput2               = 16
	TagOutput3               = 18
	TagCompatibilityOverride = 98
	TagFirstYear             = 100
	TagTargetYear            = 101
)

// YearPlaceholder marks the target year in control templates.
const YearPlaceholder = "%YR%"

// ErrTagNotFound is returned when a control file has no line with the tag.
var ErrTagNotFound = errors.New("control tag not found")

// Control is a parsed control file. Relative paths resolve against Dir.
type Control struct {
	Dir    string
	values map[int]string
}

// ParseControl reads tag/value pairs. A line whose first field is a number
// is a tagged line; the title (tag 001) keeps the rest of its line, every
// other tag keeps its first value field. Other lines are comments.
func ParseControl(data []byte, dir string) (Control, error) {
	c := Control{Dir: dir, values: make(map[int]string)}
	for _, raw := range strings.Split(string(data), "\n") {
		line := strings.TrimRight(raw, "\r")
		tag, rest, ok := splitTag(line)
		if !ok {
			continue
		}
		if tag == TagTitle {
			c.values[tag] = strings.TrimSpace(rest)
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return Control{}, fmt.Errorf("control tag %03d has no value", tag)
		}
		c.values[tag] = fields[0]
	}
	return c, nil
}

// Value returns the raw value of a tag.
func (c Control) Value(tag int) (string, bool) {
	v, ok := c.values[tag]
	return v, ok
}

// Int returns the integer value of a tag.
func (c Control) Int(tag int) (int, error) {
	v, ok := c.values[tag]
	if !ok {
		return 0, fmt.Errorf("%w: %03d", ErrTagNotFound, tag)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("control tag %03d: %w", tag, err)
	}
	return n, nil
}

// Path returns the file named by a tag resolved against the control
// directory.
func (c Control) Path(tag int) (string, error) {
	v, ok := c.values[tag]
	if !ok {
		return "", fmt.Errorf("%w: %03d", ErrTagNotFound, tag)
	}
	if filepath.IsAbs(v) {
		return v, nil
	}
	return filepath.Join(c.Dir, v), nil
}

// RewriteYear replaces the value field of every line tagged tag with year.
// All other bytes, including line endings and trailing comments, are kept.
// Rewriting with the same year is a no-op.
func RewriteYear(data []byte, tag, year int) ([]byte, error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	replacement := []byte(strconv.Itoa(year))
	found := false
	var out bytes.Buffer
	out.Grow(len(data) + 8)
	for _, line := range lines {
		body, ending := splitLineEnding(line)
		lineTag, _, ok := splitTag(string(body))
		if !ok || lineTag != tag {
			out.Write(line)
			continue
		}
		start, end := valueBounds(body)
		if start == end {
			return nil, fmt.Errorf("control tag %03d has no value", tag)
		}
		found = true
		out.Write(body[:start])
		out.Write(replacement)
		out.Write(body[end:])
		out.Write(ending)
	}
	if !found {
		return nil, fmt.Errorf("%w: %03d", ErrTagNotFound, tag)
	}
	return out.Bytes(), nil
}

func splitLineEnding(line []byte) (body, ending []byte) {
	n := len(line)
	if n > 0 && line[n-1] == '\n' {
		n--
		if n > 0 && line[n-1] == '\r' {
			n--
		}
	}
	return line[:n], line[n:]
}

// splitTag parses the leading numeric tag of a line.
func splitTag(line string) (int, string, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || (i < len(line) && line[i] != ' ' && line[i] != '\t') {
		return 0, "", false
	}
	tag, err := strconv.Atoi(line[:i])
	if err != nil {
		return 0, "", false
	}
	return tag, line[i:], true
}

// valueBounds locates the first field after the tag.
func valueBounds(body []byte) (int, int) {
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	for i < len(body) && (body[i] == ' ' || body[i] == '\t') {
		i++
	}
	start := i
	for i < len(body) && body[i] != ' ' && body[i] != '\t' {
		i++
	}
	return start, i
}

// TemplateParams fill a control template.
type TemplateParams struct {
	Title string

	// FirstYear is the first year of a growth period.
	FirstYear int

	// CompatibilityOverride names a legacy compatibility-variable file; empty
	// when none is supplied.
	CompatibilityOverride string
}

// ControlFileName returns the control file written for a component.
func ControlFileName(c domain.Component) string {
	return string(c) + ".ctl"
}

// ControlTemplate renders the control file of a component. Growth period
// templates carry YearPlaceholder for the target year.
func ControlTemplate(c domain.Component, p TemplateParams) ([]byte, error) {
	var b strings.Builder
	title := p.Title
	if title == "" {
		title = string(c)
	}
	fmt.Fprintf(&b, "%03d %s\n", TagTitle, title)
	switch c {
	case domain.ComponentFipStart, domain.ComponentVriStart:
		fmt.Fprintf(&b, "%03d %s\n", TagInput1, InventoryFile)
		fmt.Fprintf(&b, "%03d %s\n", TagOutput1, PolygonStateFile)
		fmt.Fprintf(&b, "%03d %s\n", TagOutput2, SpeciesStateFile)
		fmt.Fprintf(&b, "%03d %s\n", TagOutput3, UtilizationStateFile)
	case domain.ComponentForward, domain.ComponentBack:
		output := ForwardYieldFile
		if c == domain.ComponentBack {
			output = BackYieldFile
		}
		fmt.Fprintf(&b, "%03d %s\n", TagInput1, AdjustedPolygonFile)
		fmt.Fprintf(&b, "%03d %s\n", TagInput2, AdjustedSpeciesFile)
		fmt.Fprintf(&b, "%03d %s\n", TagInput3, AdjustedUtilizationFile)
		fmt.Fprintf(&b, "%03d %s\n", TagOutput1, output)
		if p.CompatibilityOverride != "" {
			fmt.Fprintf(&b, "%03d %s\n", TagCompatibilityOverride, p.CompatibilityOverride)
		}
		fmt.Fprintf(&b, "%03d %d\n", TagFirstYear, p.FirstYear)
		fmt.Fprintf(&b, "%03d %s\n", TagTargetYear, YearPlaceholder)
	default:
		return nil, fmt.Errorf("no control template for component %q", c)
	}
	return []byte(b.String()), nil
}
