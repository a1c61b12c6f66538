package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// colorEnabled is off when NO_COLOR is set.
var colorEnabled = os.Getenv("NO_COLOR") == ""

// DisableColors disables ANSI color output.
func DisableColors() {
	colorEnabled = false
}

// EnableColors enables ANSI color output.
func EnableColors() {
	colorEnabled = true
}

func paint(codes, text string) string {
	if !colorEnabled {
		return text
	}
	return codes + text + ansiReset
}

func red(text string) string    { return paint(ansiRed, text) }
func yellow(text string) string { return paint(ansiYellow, text) }
func blue(text string) string   { return paint(ansiBlue, text) }
func cyan(text string) string   { return paint(ansiCyan, text) }
func gray(text string) string   { return paint(ansiGray, text) }
func bold(text string) string   { return paint(ansiBold, text) }

// Format renders the error for a terminal:
//
//	ERROR E122: Invalid configuration value
//
//	  approutes.json:3:13
//	  → 3 │     "size": 0
//	      │             ^
//
//	  <detail>
//	  Hint: <suggestion>
//	  Cause: <wrapped error>
//	  Learn more: <doc url>
func (e *RouteError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(red(bold("ERROR")))
	if e.Code != "" {
		b.WriteString(bold(" " + e.Code))
	}
	b.WriteString(bold(":"))
	b.WriteString(" " + e.Message + "\n\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n", cyan(e.Location.String()))
		writeContext(&b, e.Location, e.Context)
		b.WriteString("\n")
	}

	for _, line := range wrapText(e.Detail, 70) {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if e.Detail != "" {
		b.WriteString("\n")
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&b, "  %s %s\n", yellow("Hint:"), e.Suggestion)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, "  %s %s\n", gray("Cause:"), e.Wrapped.Error())
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s %s\n", gray("Learn more:"), blue(e.DocURL))
	}

	return b.String()
}

// writeContext prints the lines around loc with the failing line marked.
func writeContext(b *strings.Builder, loc *Location, lines []string) {
	if len(lines) == 0 {
		return
	}
	first := loc.Line - len(lines)/2
	for i, line := range lines {
		n := first + i
		if n != loc.Line {
			fmt.Fprintf(b, "    %4d %s %s\n", n, gray("│"), line)
			continue
		}
		fmt.Fprintf(b, "  %s%4d %s %s\n", red("→ "), n, gray("│"), line)
		if loc.Column > 0 {
			fmt.Fprintf(b, "         %s %s%s\n", gray("│"), strings.Repeat(" ", loc.Column-1), red("^"))
		}
	}
}

// FormatCompact returns "file:line:col: CODE: message".
func (e *RouteError) FormatCompact() string {
	var parts []string
	if e.Location != nil {
		parts = append(parts, e.Location.String())
	}
	if e.Code != "" {
		parts = append(parts, e.Code)
	}
	return strings.Join(append(parts, e.Message), ": ")
}

type jsonLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

type jsonError struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Location   *jsonLocation `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
	Cause      string        `json:"cause,omitempty"`
}

// FormatJSON returns the error as a JSON object.
func (e *RouteError) FormatJSON() string {
	out := jsonError{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Location != nil {
		out.Location = &jsonLocation{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	data, _ := json.Marshal(out)
	return string(data)
}

// wrapText breaks text into lines of at most width bytes at word
// boundaries. Longer words get a line of their own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > width {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}

// PrintError writes err to w. Joined errors are printed one by one.
func PrintError(w io.Writer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		for _, e := range errs {
			PrintError(w, e)
		}
		if len(errs) > 1 {
			fmt.Fprintf(w, "%s\n\n", red(fmt.Sprintf("%d errors", len(errs))))
		}
		return
	}

	var re *RouteError
	if stderrors.As(err, &re) {
		fmt.Fprint(w, re.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", red(bold("ERROR:")), err.Error())
}
