// Package termfmt renders console output: ANSI styling for status tags
// and prompts, indentation-preserving line wrapping for long policy
// prose, and tab-level adjustment for nested remediation trees.
package termfmt

import (
	"regexp"
	"strings"
)

const esc = "\x1b"

// SGR codes.
const (
	codeBold      = "1"
	codeUnderline = "4"
	codeBlink     = "5"
	codeRed       = "31"
	codeGreen     = "32"
	codeYellow    = "33"
	codeCyan      = "36"
	codeGray      = "90"
)

// Style wraps text in the given SGR codes and a trailing reset.
func Style(text string, codes ...string) string {
	if len(codes) == 0 {
		return text
	}
	return esc + "[" + strings.Join(codes, ";") + "m" + text + esc + "[0m"
}

func Success(text string) string { return Style(text, codeGreen) }

func Error(text string) string { return Style(text, codeRed) }

func Warn(text string) string { return Style(text, codeYellow) }

// Note is cyan and bold, used for prompts and informational banners.
func Note(text string) string { return Style(text, codeCyan, codeBold) }

// Muted is bright black, used for outcomes that carry no signal.
func Muted(text string) string { return Style(text, codeGray) }

func Bold(text string) string { return Style(text, codeBold) }

func Underline(text string) string { return Style(text, codeUnderline) }

func Blink(text string) string { return Style(text, codeBlink) }

// DefaultWidth is the wrap column for console output.
const DefaultWidth = 130

// Wrap wraps each line of text to at most width characters, breaking at
// word boundaries where possible. Continuation lines repeat the
// original line's leading whitespace so indented blocks stay aligned.
func Wrap(text string, width int) string {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		prefix := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		wrapped := wrapLine([]rune(strings.TrimSpace(line)), width, false)
		out[i] = prefix + strings.Join(strings.Split(wrapped, "\n"), "\n"+prefix)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line []rune, width int, breakWord bool) string {
	var b strings.Builder
	if breakWord {
		// Finish the word in progress, then break at the space after it.
		space := -1
		for i, ch := range line {
			if ch == ' ' || ch == '\t' {
				space = i
				break
			}
		}
		if space < 0 {
			return string(line)
		}
		b.WriteString(string(line[:space]))
		b.WriteString("\n")
		line = line[space+1:]
	}
	for i, ch := range line {
		if i >= width-1 {
			b.WriteString(wrapLine(line[i:], width, true))
			break
		}
		b.WriteRune(ch)
	}
	return b.String()
}

var indentRe = regexp.MustCompile(`^((?: {4}|\t)+)?(.*)$`)

// Indent shifts every line of text by level tab stops. Existing
// indentation counts in units of one tab or four spaces; negative
// levels unindent, clamping at column zero.
func Indent(text string, level int) string {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		m := indentRe.FindStringSubmatch(line)
		curr := strings.Count(m[1], "    ") + strings.Count(m[1], "\t")
		next := curr + level
		if next <= 0 {
			out[i] = m[2]
		} else {
			out[i] = strings.Repeat("\t", next) + m[2]
		}
	}
	return strings.Join(out, "\n")
}
