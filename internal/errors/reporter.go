package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Reporter formats diagnostics against their originating source text,
// in the same "-->" location-line style as kanso's ErrorReporter.
type Reporter struct {
	filename string
	source   string
	lines    []string
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, source: source, lines: strings.Split(source, "\n")}
}

func (r *Reporter) severityColor(s Severity) func(format string, a ...interface{}) string {
	bold := color.New(color.Bold)
	switch s {
	case SeverityError:
		return bold.Add(color.FgRed).SprintfFunc()
	case SeverityWarning:
		return bold.Add(color.FgYellow).SprintfFunc()
	default:
		return bold.Add(color.FgCyan).SprintfFunc()
	}
}

// Format renders one diagnostic as a multi-line, colorized report.
func (r *Reporter) Format(d Diagnostic) string {
	var out strings.Builder
	colorFn := r.severityColor(d.Severity)

	if d.Code != "" {
		out.WriteString(fmt.Sprintf("%s[%s]: %s\n", colorFn(string(d.Severity)), d.Code, d.Message))
	} else {
		out.WriteString(fmt.Sprintf("%s: %s\n", colorFn(string(d.Severity)), d.Message))
	}

	if d.Loc != nil {
		line, col := r.lineCol(d.Loc.Offset)
		out.WriteString(fmt.Sprintf("  --> %s:%d:%d\n", r.filename, line, col))
		if line-1 >= 0 && line-1 < len(r.lines) {
			out.WriteString(fmt.Sprintf("%4d | %s\n", line, r.lines[line-1]))
		}
	}

	if d.Expected != "" || d.Actual != "" {
		out.WriteString(fmt.Sprintf("  expected %s, found %s\n", d.Expected, d.Actual))
	}

	return out.String()
}

func (r *Reporter) lineCol(offset int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < offset && i < len(r.source); i++ {
		if r.source[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return
}

// FormatAll renders every diagnostic in a list, most severe first.
func (r *Reporter) FormatAll(list *List) string {
	var out strings.Builder
	for _, d := range list.Errors() {
		out.WriteString(r.Format(d))
	}
	for _, d := range list.Warnings() {
		out.WriteString(r.Format(d))
	}
	for _, d := range list.Infos() {
		out.WriteString(r.Format(d))
	}
	return out.String()
}
