package solution

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hostcomply/hostcomply/internal/hostprobe"
	"github.com/hostcomply/hostcomply/internal/prompt"
	"github.com/hostcomply/hostcomply/internal/termfmt"
)

// HostEnv is the Environment used in real runs: commands go to the
// host shell, questions to the terminal.
type HostEnv struct {
	Host     *hostprobe.Host
	Prompter *prompt.Prompter
	Out      io.Writer

	// OnRebootRequired is called when an act flags the host for reboot.
	OnRebootRequired func()
}

func (e *HostEnv) Execute(ctx context.Context, cmd string, ask bool) (string, error) {
	if ask {
		ok, err := e.Prompter.Confirm("", termfmt.Note(cmd+"\nExecute?"))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", nil
		}
	}
	out, err := e.Host.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if ask {
		e.Prompter.Note("", out)
	}
	return out, nil
}

func (e *HostEnv) Confirm(title, prompt string) (bool, error) {
	return e.Prompter.Confirm(title, prompt)
}

func (e *HostEnv) Note(title, prompt string) {
	e.Prompter.Note(title, prompt)
}

func (e *HostEnv) Choose(title, prompt string, choices []string) (int, bool, error) {
	return e.Prompter.Choose(title, prompt, choices)
}

func (e *HostEnv) Editor(file, prompt string) error {
	return e.Prompter.Editor(file, prompt)
}

func (e *HostEnv) SetRebootRequired() {
	if e.OnRebootRequired != nil {
		e.OnRebootRequired()
	}
}

// Backup copies path to path.backup before a destructive act. Taken
// names fall through to numbered suffixes; when a thousand backups
// exist already the main one is overwritten.
func (e *HostEnv) Backup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	e.Prompter.Note("", "Backing up "+path)

	main := path + ".backup"
	candidate := main
	for i := 0; i < 1000; i++ {
		if _, err := os.Stat(candidate); err == nil {
			fmt.Fprintln(e.Out, termfmt.Warn("Backup "+candidate+" already exists"))
			candidate = fmt.Sprintf("%s.backup.%d", path, i)
			continue
		}
		_, err := e.Execute(ctx, fmt.Sprintf("cp -r %s %s", path, candidate), true)
		return err
	}

	fmt.Fprintln(e.Out, termfmt.Warn("All backup paths already exist (overwriting the main backup)"))
	_, err := e.Execute(ctx, fmt.Sprintf("cp -r %s %s", path, main), true)
	return err
}
