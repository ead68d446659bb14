// Package prompt implements the interactive console questions the
// remediation flow depends on: yes/no confirmation, numbered choice,
// informational notes and launching a text editor.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// ErrAborted is returned when the input stream ends mid-question. It
// unwinds the current remediation attempt.
var ErrAborted = errors.New("prompt aborted")

// Prompter asks questions on a terminal. Streams are injectable so
// tests can script a session.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	// AssumeYes answers every confirmation with yes without asking.
	AssumeYes bool

	// editor launches an editor on a file; replaced in tests.
	editor func(file string) error
}

func New() *Prompter {
	return &Prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		editor: func(file string) error {
			name := os.Getenv("EDITOR")
			if name == "" {
				name = "nano"
			}
			cmd := exec.Command(name, file)
			cmd.Stdin = os.Stdin
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			return cmd.Run()
		},
	}
}

// NewWithStreams builds a prompter over arbitrary streams, for tests.
func NewWithStreams(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:     bufio.NewReader(in),
		out:    out,
		editor: func(string) error { return nil },
	}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return "", ErrAborted
	}
	return strings.TrimSpace(line), nil
}

// Confirm shows the prompt and asks for confirmation. Empty input
// means yes.
func (p *Prompter) Confirm(title, prompt string) (bool, error) {
	if title != "" {
		fmt.Fprintln(p.out, termfmt.Success(banner(title, "=")))
	}
	fmt.Fprintln(p.out, prompt)

	if p.AssumeYes {
		fmt.Fprintln(p.out, termfmt.Success("[ACCEPTED]"))
		return true, nil
	}

	fmt.Fprint(p.out, termfmt.Blink("Proceed? [Y/n] (default=yes): "))
	answer, err := p.readLine()
	if err != nil {
		return false, err
	}

	ok := answer == "" || answer == "yes" || answer == "y" || answer == "Y"
	if ok {
		fmt.Fprintln(p.out, termfmt.Success("[ACCEPTED]"))
	} else {
		fmt.Fprintln(p.out, termfmt.Error("[DECLINED]"))
	}
	return ok, nil
}

// Note prints an informational message, with an optional title rule.
func (p *Prompter) Note(title, prompt string) {
	if title != "" {
		fmt.Fprintln(p.out, banner(title, "-"))
	}
	fmt.Fprintln(p.out, termfmt.Note(prompt))
}

// Choose presents numbered choices and returns the selected index.
// Any input that is not a valid index aborts the choice; ok is false
// and no index is returned.
func (p *Prompter) Choose(title, prompt string, choices []string) (int, bool, error) {
	if title == "" {
		title = "Choose"
	}
	fmt.Fprintln(p.out, banner(title, "-"))
	fmt.Fprintln(p.out, prompt)
	for i, choice := range choices {
		fmt.Fprintf(p.out, "%d) %s\n", i, choice)
	}
	fmt.Fprintln(p.out)

	fmt.Fprint(p.out, termfmt.Blink("What do you choose? (press any other key to abort): "))
	answer, err := p.readLine()
	if err != nil {
		return 0, false, err
	}

	idx, convErr := strconv.Atoi(answer)
	if convErr != nil || idx < 0 || idx >= len(choices) {
		fmt.Fprintln(p.out, termfmt.Error(banner("ABORTED", "-")))
		return 0, false, nil
	}

	fmt.Fprintln(p.out, termfmt.Success("Selected: "+choices[idx]))
	return idx, true, nil
}

// Editor opens the file in a text editor after confirmation.
func (p *Prompter) Editor(file, prompt string) error {
	ok, err := p.Confirm("Launching Text Editor", prompt)
	if err != nil || !ok {
		return err
	}
	return p.editor(file)
}

func banner(title, rule string) string {
	line := strings.Repeat(rule, 12)
	if rule == "=" {
		line = strings.Repeat(rule, 32)
	}
	return line + " " + title + " " + line
}
