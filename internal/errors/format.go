package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/RaphaelK12/blospray/pkg/export"
)

type style string

const (
	styleReset  style = "\033[0m"
	styleBold   style = "\033[1m"
	styleRed    style = "\033[31m"
	styleGreen  style = "\033[32m"
	styleYellow style = "\033[33m"
	styleCyan   style = "\033[36m"
	styleDim    style = "\033[90m"
)

var colorEnabled = true

// DisableColors turns off ANSI styling, e.g. for --no-color or when
// output is not a terminal.
func DisableColors() { colorEnabled = false }

// EnableColors turns ANSI styling back on.
func EnableColors() { colorEnabled = true }

func paint(text string, styles ...style) string {
	if !colorEnabled || len(styles) == 0 {
		return text
	}
	var b strings.Builder
	for _, s := range styles {
		b.WriteString(string(s))
	}
	b.WriteString(text)
	b.WriteString(string(styleReset))
	return b.String()
}

// categoryStyle is the header accent per category.
var categoryStyle = map[Category]style{
	CategoryConnection: styleRed,
	CategoryHandshake:  styleRed,
	CategoryProtocol:   styleRed,
	CategoryScene:      styleYellow,
	CategoryConfig:     styleYellow,
	CategoryOutput:     styleCyan,
	CategoryCLI:        styleYellow,
}

// Format renders the error for the terminal: a header with code and
// category, the scene or config excerpt when a location is known, the
// entity the exporter gave up on, and the chain of causes.
func (e *BlosprayError) Format() string {
	var b strings.Builder
	accent := categoryStyle[e.Category]
	if accent == "" {
		accent = styleRed
	}

	b.WriteString("\n")
	b.WriteString(paint("ERROR", styleBold, accent))
	if e.Code != "" {
		b.WriteString(" " + paint(e.Code, styleBold))
	}
	if e.Category != "" {
		b.WriteString(paint(" ["+string(e.Category)+"]", styleDim))
	}
	b.WriteString(" " + e.Message + "\n\n")

	if e.Location != nil {
		e.writeExcerpt(&b, accent)
	}
	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 72) {
			b.WriteString("  " + line + "\n")
		}
		b.WriteString("\n")
	}
	if line := entityLine(e.Wrapped); line != "" {
		b.WriteString("  " + paint("Entity: ", styleBold) + line + "\n\n")
	}
	if e.Suggestion != "" {
		b.WriteString("  " + paint("Hint: ", styleCyan) + e.Suggestion + "\n\n")
	}
	if chain := causes(e.Wrapped); len(chain) > 0 {
		b.WriteString("  " + paint("Caused by:", styleDim) + "\n")
		for _, c := range chain {
			b.WriteString("    " + paint("- ", styleDim) + c + "\n")
		}
	}
	return b.String()
}

// writeExcerpt prints the file position and, when the file could be
// read, the lines around it with a marker on the offending line.
func (e *BlosprayError) writeExcerpt(b *strings.Builder, accent style) {
	b.WriteString("  " + paint(e.Location.String(), styleCyan) + "\n")
	if len(e.Context) == 0 {
		b.WriteString("\n")
		return
	}
	b.WriteString("\n")
	for i, text := range e.Context {
		n := e.ContextStart + i
		marker := "   "
		if n == e.Location.Line {
			marker = paint(" > ", accent)
		}
		fmt.Fprintf(b, "  %s%4d %s %s\n", marker, n, paint("|", styleDim), text)
		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "  %s     %s %s%s\n", "   ", paint("|", styleDim),
				strings.Repeat(" ", e.Location.Column-1), paint("^", accent))
		}
	}
	b.WriteString("\n")
}

// entityLine describes the scene entity an export error refers to.
func entityLine(err error) string {
	var ue *export.UnsupportedEntityError
	if stderrors.As(err, &ue) {
		return fmt.Sprintf("%s %q (%s)", ue.Kind, ue.Name, ue.Reason)
	}
	var se *export.SubstitutionError
	if stderrors.As(err, &se) {
		return fmt.Sprintf("%s, property %q uses undefined ${%s}", se.Owner, se.Property, se.Variable)
	}
	return ""
}

// causes splits a %w chain into one line per layer, outermost first, so
// "send UPDATE_OBJECT: connection lost: EOF" becomes three lines.
func causes(err error) []string {
	var out []string
	for err != nil {
		msg := err.Error()
		next := stderrors.Unwrap(err)
		if next == nil {
			out = append(out, msg)
			break
		}
		if own := strings.TrimSuffix(msg, ": "+next.Error()); own != msg {
			out = append(out, own)
		} else if msg != next.Error() {
			// The layer rewords its cause instead of prefixing it.
			out = append(out, msg)
			break
		}
		err = next
	}
	return out
}

// wrapText breaks text into lines of at most width bytes at word
// boundaries. A single word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// PrintError writes err to stderr.
func PrintError(err error) { Fprint(os.Stderr, err) }

// Fprint writes a formatted error to w. Errors that are not a
// *BlosprayError are classified first.
func Fprint(w io.Writer, err error) {
	fmt.Fprint(w, Classify(err).Format())
}

// Warning formats a non-fatal message, such as a skipped entity.
func Warning(msg string) string { return paint("WARN ", styleBold, styleYellow) + msg }

// Success formats a completion message.
func Success(msg string) string { return paint("OK ", styleBold, styleGreen) + msg }
